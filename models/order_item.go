package models

// OrderItem is one line of an order. Rows are only written by order placement.
type OrderItem struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	OrderID   uint     `gorm:"not null;index" json:"order_id"`
	Order     *Order   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
	ProductID uint     `gorm:"not null;index" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
	Quantity  int      `gorm:"not null" json:"quantity"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// OrderItemDetail is an order item joined with the name of its product
type OrderItemDetail struct {
	ID          uint   `json:"id"`
	OrderID     uint   `json:"order_id"`
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// All returns every table model in migration order
func All() []any {
	return []any{&Product{}, &Order{}, &OrderItem{}}
}
