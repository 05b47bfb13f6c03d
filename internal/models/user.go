package models

import "time"

// User is a staff account. Login is by login_id; Password holds a bcrypt hash.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LoginID     string    `gorm:"uniqueIndex;not null" json:"login_id"`
	Password    string    `gorm:"not null" json:"-"`
	DisplayName string    `json:"display_name"`
	Role        string    `gorm:"not null;default:'staff'" json:"role"` // staff, admin
	ShopID      *uint     `json:"shop_id"`
	Shop        *Shop     `gorm:"foreignKey:ShopID" json:"shop,omitempty"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
