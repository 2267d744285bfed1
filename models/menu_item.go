package models

import (
	"time"

	"gorm.io/gorm"
)

// MenuItem represents a dish on the restaurant menu
type MenuItem struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description *string        `json:"description"`                                // nullable, shown on the customer menu
	Price       string         `gorm:"type:decimal(10,2);not null" json:"price"`   // decimal string, e.g. "1500.00"
	Category    string         `gorm:"not null;index" json:"category"`             // free text, UI constrains to a fixed set
	ImageS3Key  *string        `json:"image_s3_key"`                               // nullable, S3 key for the item photo
	ImageURL    *string        `gorm:"-" json:"image_url,omitempty"`               // computed field, presigned URL for the photo
	Available   bool           `gorm:"not null;default:true" json:"available"`     // unavailable items cannot be ordered
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the MenuItem model
func (MenuItem) TableName() string {
	return "menu_items"
}
