package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices go over the wire as JSON numbers, the way clients submit them
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a catalog entry that order items reference
type Product struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	ImageKey  *string         `json:"-"`                          // nullable, S3 key of the product image
	ImageURL  *string         `gorm:"-" json:"image_url,omitempty"` // computed field, presigned URL for image
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
