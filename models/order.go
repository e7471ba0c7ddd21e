package models

import (
	"time"
)

// OrderStatus is the free-form status an admin sets on an order.
// Only Pending has a fixed meaning; any other non-empty value is accepted.
type OrderStatus string

const OrderStatusPending OrderStatus = "Pending"

// Valid reports whether s can be stored as an order status
func (s OrderStatus) Valid() bool {
	return s != ""
}

// Order represents a customer purchase with delivery details.
// IdempotencyKey holds the client supplied Idempotency-Key and is NULL for orders placed without one.
type Order struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Name           string      `gorm:"not null" json:"name"`
	Address        string      `gorm:"not null" json:"address"`
	Contact        string      `gorm:"not null" json:"contact"`
	Status         OrderStatus `gorm:"type:varchar(64);not null;default:'Pending'" json:"status"`
	IdempotencyKey *string     `gorm:"size:255;uniqueIndex" json:"-"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}
