package models

import (
	"time"
)

// Payment record statuses
const (
	PaymentRecordPending   = "pending"
	PaymentRecordCompleted = "completed"
	PaymentRecordFailed    = "failed"
)

// Payment represents the payment record for an order (one-to-one)
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"uniqueIndex;not null" json:"order_id"` // one payment per order
	Order     Order     `gorm:"foreignKey:OrderID" json:"-"`
	Amount    string    `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method    string    `gorm:"not null" json:"method"` // cash, card, transfer
	Status    string    `gorm:"not null;default:'pending'" json:"status"` // pending, completed, failed
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

// ValidPaymentStatus reports whether s is one of the enumerated payment
// record statuses.
func ValidPaymentStatus(s string) bool {
	return s == PaymentRecordPending || s == PaymentRecordCompleted || s == PaymentRecordFailed
}
