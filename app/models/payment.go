package models

import "time"

// Payment provider constants.
const (
	PaymentProviderMollie = "mollie"
	PaymentProviderStripe = "stripe"
)

// Payment mirrors one provider payment attempt for an order. RawStatus keeps
// the provider's vocabulary verbatim; Status holds the normalized outcome.
type Payment struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	OrderID           uint      `gorm:"not null;index" json:"order_id"`
	Provider          string    `gorm:"type:varchar(20);not null;index:ux_payments_provider_payment,unique,priority:1" json:"provider"`
	ProviderPaymentID string    `gorm:"type:varchar(191);not null;index:ux_payments_provider_payment,unique,priority:2" json:"provider_payment_id"`
	TransactionID     string    `gorm:"type:varchar(191);default:''" json:"transaction_id"`
	Status            string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RawStatus         string    `gorm:"type:varchar(50);default:''" json:"raw_status"`
	AmountCents       int64     `gorm:"not null;default:0" json:"amount_cents"`
	Currency          string    `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
