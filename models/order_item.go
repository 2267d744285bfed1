package models

import (
	"time"
)

// OrderItem represents one line of an order: a menu item reference plus a
// quantity and the price the item had when the order was placed. Rows are
// deleted together with their owning order.
type OrderItem struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	OrderID             uint      `gorm:"not null;index" json:"order_id"`
	Order               Order     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"` // don't include full order in JSON
	MenuItemID          uint      `gorm:"not null;index" json:"menu_item_id"`
	MenuItem            MenuItem  `gorm:"foreignKey:MenuItemID" json:"menu_item,omitempty"` // referenced, never owned
	Quantity            int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price               string    `gorm:"type:decimal(10,2);not null" json:"price"` // snapshot at order time, not current menu price
	SpecialInstructions string    `gorm:"type:text" json:"special_instructions"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
