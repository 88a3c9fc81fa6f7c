package models

import "time"

// Order status constants. Paid, failed and cancelled are terminal.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
)

// Order is one checkout attempt snapshotted from the cart.
type Order struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UUID          string      `gorm:"type:varchar(36);not null;uniqueIndex" json:"uuid"`
	CartID        string      `gorm:"type:varchar(36);not null;index" json:"cart_id"`
	Status        string      `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	FailureReason string      `gorm:"type:varchar(200);default:''" json:"failure_reason"`
	TotalCents    int64       `gorm:"not null;default:0" json:"total_cents"`
	Currency      string      `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Items         []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt     time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderItem is a priced line item snapshotted from the cart at checkout.
type OrderItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	ProductID  string    `gorm:"type:varchar(36);not null" json:"product_id"`
	Name       string    `gorm:"type:varchar(200);not null" json:"name"`
	Quantity   int       `gorm:"not null;default:1" json:"quantity"`
	PriceCents int64     `gorm:"not null;default:0" json:"price_cents"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// IsTerminal reports whether the order can still change status.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusFailed || o.Status == OrderStatusCancelled
}
