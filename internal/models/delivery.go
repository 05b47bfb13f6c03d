package models

import "time"

type Delivery struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	OrderID      uint       `gorm:"not null;index" json:"order_id"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`

	Items []DeliveryItem `gorm:"foreignKey:DeliveryID" json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// DeliveryItem records how much of one order line a delivery fulfilled.
// Partial quantities are allowed; the order's delivery status is recomputed
// from the sum per line.
type DeliveryItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	DeliveryID  uint    `gorm:"not null;index" json:"delivery_id"`
	OrderItemID uint    `gorm:"not null;index" json:"order_item_id"`
	Quantity    float64 `gorm:"not null" json:"quantity"`
}
