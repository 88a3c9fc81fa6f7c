package repository

import (
	"github.com/ManuelReschke/ShopFox/app/models"
	"gorm.io/gorm"
)

// OrderRepository defines the interface for order-related database operations
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByUUID(uuid string) (*models.Order, error)
	Update(order *models.Order) error
	MarkPaid(uuid string) error
	MarkFailed(uuid, reason string) error
	ListRecent(offset, limit int) ([]models.Order, error)
	Count() (int64, error)
}

// PaymentRepository defines the interface for payment-related database operations
type PaymentRepository interface {
	Upsert(payment *models.Payment) error
	GetByProviderPaymentID(provider, providerPaymentID string) (*models.Payment, error)
	UpdateStatus(provider, providerPaymentID, status, rawStatus, transactionID string) error
	CreateEventIfNotExists(event *models.PaymentEvent) (bool, *models.PaymentEvent, error)
	MarkEventProcessed(id uint, processingError string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Order   OrderRepository
	Payment PaymentRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:   NewOrderRepository(db),
		Payment: NewPaymentRepository(db),
	}
}
