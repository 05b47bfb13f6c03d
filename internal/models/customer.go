package models

import "time"

// Customer is the persisted, long-lived customer record. Estimate parties and
// order snapshot columns copy from it at a point in time; later edits here do
// not rewrite those copies.
type Customer struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"not null;index" json:"name"`
	Kana         string     `gorm:"index" json:"kana,omitempty"`
	Email        string     `gorm:"index" json:"email,omitempty"`
	PostalCode   string     `json:"postal_code,omitempty"`
	Address      string     `json:"address,omitempty"`
	Phone        string     `gorm:"index" json:"phone,omitempty"`
	MobilePhone  string     `gorm:"index" json:"mobile_phone,omitempty"`
	Company      string     `json:"company,omitempty"`
	CompanyPhone string     `json:"company_phone,omitempty"`
	Birthdate    *time.Time `json:"birthdate,omitempty"`

	CustomerClassID *uint          `json:"customer_class_id,omitempty"`
	CustomerClass   *CustomerClass `gorm:"foreignKey:CustomerClassID" json:"customer_class,omitempty"`
	StaffID         *uint          `json:"staff_id,omitempty"`
	Staff           *User          `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
	RegionID        *uint          `json:"region_id,omitempty"`
	Region          *Region        `gorm:"foreignKey:RegionID" json:"region,omitempty"`
	GenderID        *uint          `json:"gender_id,omitempty"`
	Gender          *Gender        `gorm:"foreignKey:GenderID" json:"gender,omitempty"`
	FirstShopID     *uint          `json:"first_shop_id,omitempty"`
	FirstShop       *Shop          `gorm:"foreignKey:FirstShopID" json:"first_shop,omitempty"`
	LastShopID      *uint          `json:"last_shop_id,omitempty"`
	LastShop        *Shop          `gorm:"foreignKey:LastShopID" json:"last_shop,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CustomerMemo struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CustomerID uint      `gorm:"not null;index" json:"customer_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
