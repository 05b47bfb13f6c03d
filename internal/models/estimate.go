package models

import "time"

// Estimate statuses
const (
	EstimateStatusDraft   = "draft"
	EstimateStatusIssued  = "issued"
	EstimateStatusOrdered = "ordered"
)

type Estimate struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	EstimateNo string `gorm:"uniqueIndex;not null" json:"estimate_no"`
	ShopID     *uint  `json:"shop_id"`
	Shop       *Shop  `gorm:"foreignKey:ShopID" json:"shop,omitempty"`

	PartyID *uint          `json:"party_id,omitempty"`
	Party   *EstimateParty `gorm:"foreignKey:PartyID" json:"party,omitempty"`

	Status       string     `gorm:"not null;default:'draft'" json:"status"`
	EstimateDate *time.Time `json:"estimate_date,omitempty"`

	Subtotal      float64 `json:"subtotal"`
	DiscountTotal float64 `json:"discount_total"`
	TaxTotal      float64 `json:"tax_total"`
	GrandTotal    float64 `json:"grand_total"`

	Items []EstimateItem `gorm:"foreignKey:EstimateID" json:"items,omitempty"`

	CreatedByID *uint     `json:"created_by_id,omitempty"`
	CreatedBy   *User     `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tax types shared by estimate and order lines.
const (
	TaxTypeTaxable    = "taxable"
	TaxTypeNonTaxable = "non_taxable"
)

type EstimateItem struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	EstimateID uint `gorm:"not null;index" json:"estimate_id"`

	Name      string  `gorm:"not null" json:"name"`
	Quantity  float64 `gorm:"not null;default:1" json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	TaxType   string  `gorm:"not null;default:'taxable'" json:"tax_type"`
	Discount  float64 `json:"discount"`
	Subtotal  float64 `json:"subtotal"`
	SaleType  string  `json:"sale_type,omitempty"` // new, used, rental_up, consignment

	StaffID *uint `json:"staff_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (EstimateItem) TableName() string { return "estimate_items" }

// LineSubtotal is unit price × quantity − discount.
func (i EstimateItem) LineSubtotal() float64 {
	return i.UnitPrice*i.Quantity - i.Discount
}
