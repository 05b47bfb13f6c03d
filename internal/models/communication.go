package models

import "time"

// Business communication statuses
const (
	CommunicationPending = "pending"
	CommunicationDone    = "done"
)

// BusinessCommunication is a shop-to-shop note about a customer, e.g. the
// sending shop asking the receiving shop to follow up on an inquiry. The
// receiving shop works its inbox and flips the status when handled.
type BusinessCommunication struct {
	ID             uint  `gorm:"primaryKey" json:"id"`
	CustomerID     uint  `gorm:"not null;index" json:"customer_id"`
	SenderShopID   *uint `json:"sender_shop_id,omitempty"`
	ReceiverShopID uint  `gorm:"not null;index" json:"receiver_shop_id"`

	CreatedByID uint  `json:"created_by_id"`
	CreatedBy   *User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`

	Title   string `gorm:"not null" json:"title"`
	Content string `json:"content"`
	Status  string `gorm:"not null;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
