package models

import "time"

// Category is a free-form product grouping. Categories nest through
// ParentID; root categories have none.
type Category struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	ParentID  *uint  `gorm:"index" json:"parent_id,omitempty"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
}

// Product is a catalog entry used to prefill estimate and order lines.
// The name stays free text on the line itself; the catalog only supplies
// defaults.
type Product struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	CategoryID *uint   `gorm:"index" json:"category_id,omitempty"`
	Name       string  `gorm:"not null" json:"name"`
	UnitPrice  float64 `json:"unit_price"`
	TaxType    string  `gorm:"not null;default:'taxable'" json:"tax_type"`
	IsActive   bool    `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
