package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order statuses. completed and cancelled are terminal; any transition
// between enumerated statuses is accepted (kitchen and managers may skip
// steps or cancel at any point before a terminal status).
const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Order types
const (
	OrderTypeOnline = "online"
	OrderTypeWalkIn = "walk-in"
	OrderTypeDineIn = "dine-in"
)

// Payment statuses carried on the order row
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Order represents a customer or walk-in order
type Order struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	OrderNumber   int            `gorm:"uniqueIndex;not null" json:"order_number"` // human-facing sequential number
	CustomerName  string         `gorm:"not null" json:"customer_name"`
	CustomerPhone string         `json:"customer_phone"`
	OrderType     string         `gorm:"not null;default:'online'" json:"order_type"` // online, walk-in, dine-in
	Status        string         `gorm:"not null;default:'pending';index" json:"status"`
	TotalAmount   string         `gorm:"type:decimal(10,2);not null" json:"total_amount"` // sum of line totals at creation time
	PaymentStatus string         `gorm:"not null;default:'pending'" json:"payment_status"`
	PaymentMethod string         `json:"payment_method"`
	Notes         string         `gorm:"type:text" json:"notes"`
	Items         []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// ValidOrderStatus reports whether s is one of the enumerated order statuses.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// TerminalOrderStatus reports whether s is a terminal status.
func TerminalOrderStatus(s string) bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// ActiveOrderStatuses lists the non-terminal statuses, used by the
// active-orders polling endpoint.
func ActiveOrderStatuses() []string {
	return []string{OrderStatusPending, OrderStatusPreparing, OrderStatusReady}
}

// ComputeOrderTotal sums price x quantity across the given items.
// Prices are decimal strings snapshotted at order time.
func ComputeOrderTotal(items []OrderItem) (string, error) {
	total := decimal.Zero
	for _, item := range items {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return "", err
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.StringFixed(2), nil
}
