package models

import "time"

// EstimateParty is the customer snapshot attached to an estimate: the same
// field shape as Customer, frozen at estimate time. SourceCustomerID is set
// only when the snapshot came from a confirmed existing customer; free-text
// entry leaves it null. On conversion to an order the party is promoted to
// (or matched with) a Customer.
type EstimateParty struct {
	ID               uint  `gorm:"primaryKey" json:"id"`
	SourceCustomerID *uint `gorm:"index" json:"source_customer"`

	Name         string     `gorm:"not null" json:"name"`
	Kana         string     `json:"kana,omitempty"`
	Email        string     `json:"email,omitempty"`
	PostalCode   string     `json:"postal_code,omitempty"`
	Address      string     `json:"address,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	MobilePhone  string     `json:"mobile_phone,omitempty"`
	Company      string     `json:"company,omitempty"`
	CompanyPhone string     `json:"company_phone,omitempty"`
	Birthdate    *time.Time `json:"birthdate,omitempty"`

	CustomerClassID *uint `json:"customer_class_id,omitempty"`
	StaffID         *uint `json:"staff_id,omitempty"`
	RegionID        *uint `json:"region_id,omitempty"`
	GenderID        *uint `json:"gender_id,omitempty"`
	FirstShopID     *uint `json:"first_shop_id,omitempty"`
	LastShopID      *uint `json:"last_shop_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (EstimateParty) TableName() string { return "estimate_parties" }
