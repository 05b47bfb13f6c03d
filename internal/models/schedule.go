package models

import "time"

type Schedule struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CustomerID  *uint      `gorm:"index" json:"customer_id,omitempty"`
	ShopID      *uint      `json:"shop_id,omitempty"`
	StaffID     uint       `gorm:"not null;index" json:"staff_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description,omitempty"`
	StartAt     time.Time  `gorm:"not null" json:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
