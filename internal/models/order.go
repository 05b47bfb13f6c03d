package models

import "time"

// Order statuses
const (
	OrderStatusDraft     = "draft"
	OrderStatusOrdered   = "ordered"
	OrderStatusCancelled = "cancelled"
	OrderStatusDelivered = "delivered"
)

// Order-level delivery statuses
const (
	DeliveryNotDelivered = "not_delivered"
	DeliveryPartial      = "partial"
	DeliveryDelivered    = "delivered"
)

// Order carries its own party snapshot columns (party_name .. address):
// the customer's details as they stood at order time. The Customer FK keeps
// identity; the snapshot keeps history.
type Order struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	OrderNo string `gorm:"uniqueIndex;not null" json:"order_no"`
	ShopID  *uint  `json:"shop_id"`
	Shop    *Shop  `gorm:"foreignKey:ShopID" json:"shop,omitempty"`

	EstimateID *uint     `gorm:"index" json:"estimate_id,omitempty"`
	Estimate   *Estimate `gorm:"foreignKey:EstimateID" json:"-"`

	CustomerID *uint     `gorm:"index" json:"customer_id,omitempty"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	PartyName  string `gorm:"not null" json:"party_name"`
	PartyKana  string `json:"party_kana,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Address    string `json:"address,omitempty"`

	Status            string     `gorm:"not null;default:'ordered'" json:"status"`
	OrderDate         *time.Time `json:"order_date,omitempty"`
	DeliveryStatus    string     `gorm:"not null;default:'not_delivered'" json:"delivery_status"`
	FinalDeliveryDate *time.Time `json:"final_delivery_date,omitempty"`
	FinalPaymentDate  *time.Time `json:"final_payment_date,omitempty"`
	SalesDate         *time.Time `json:"sales_date,omitempty"`

	Subtotal      float64 `json:"subtotal"`
	DiscountTotal float64 `json:"discount_total"`
	TaxTotal      float64 `json:"tax_total"`
	GrandTotal    float64 `json:"grand_total"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`

	CreatedByID *uint     `json:"created_by_id,omitempty"`
	CreatedBy   *User     `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Item-level delivery statuses
const (
	ItemDeliveryPending   = "pending"
	ItemDeliveryDelivered = "delivered"
)

type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"order_id"`

	Name      string  `gorm:"not null" json:"name"`
	Quantity  float64 `gorm:"not null;default:1" json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	TaxType   string  `gorm:"not null;default:'taxable'" json:"tax_type"`
	Discount  float64 `json:"discount"`
	Subtotal  float64 `json:"subtotal"`
	SaleType  string  `json:"sale_type,omitempty"`

	StaffID *uint `json:"staff_id,omitempty"`

	DeliveryStatus string     `gorm:"not null;default:'pending'" json:"delivery_status"`
	DeliveryDate   *time.Time `json:"delivery_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i OrderItem) LineSubtotal() float64 {
	return i.UnitPrice*i.Quantity - i.Discount
}
