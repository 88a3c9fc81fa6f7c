package repository

import (
	"github.com/ManuelReschke/ShopFox/app/models"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository backed by GORM.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByUUID(uuid string) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").Where("uuid = ?", uuid).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Update(order *models.Order) error {
	return r.db.Save(order).Error
}

// MarkPaid promotes a pending order to paid. Terminal rows are left alone so
// a late or replayed event can never rewrite a settled order.
func (r *orderRepository) MarkPaid(uuid string) error {
	return r.db.Model(&models.Order{}).
		Where("uuid = ? AND status = ?", uuid, models.OrderStatusPending).
		Update("status", models.OrderStatusPaid).Error
}

func (r *orderRepository) MarkFailed(uuid, reason string) error {
	return r.db.Model(&models.Order{}).
		Where("uuid = ? AND status = ?", uuid, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusFailed,
			"failure_reason": reason,
		}).Error
}

func (r *orderRepository) ListRecent(offset, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).Count(&count).Error
	return count, err
}
