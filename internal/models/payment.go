package models

import "time"

// Payment owner kinds (the generic relation of the original, flattened).
const (
	PaymentOwnerEstimate = "estimate"
	PaymentOwnerOrder    = "order"
)

// Payment methods
const (
	PaymentMethodCash    = "cash"
	PaymentMethodCredit  = "credit"
	PaymentMethodInvoice = "invoice"
)

// Payment attaches to either an estimate or an order via (OwnerType, OwnerID).
// Credit fields are populated only for the credit method.
type Payment struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	OwnerType string `gorm:"not null;index:idx_payments_owner" json:"owner_type"`
	OwnerID   uint   `gorm:"not null;index:idx_payments_owner" json:"owner_id"`

	PaymentMethod string `gorm:"not null;default:'cash'" json:"payment_method"`

	CreditCompany       string   `json:"credit_company,omitempty"`
	CreditFirstPayment  *float64 `json:"credit_first_payment,omitempty"`
	CreditSecondPayment *float64 `json:"credit_second_payment,omitempty"`
	CreditBonusPayment  *float64 `json:"credit_bonus_payment,omitempty"`
	CreditInstallments  *int     `json:"credit_installments,omitempty"`
	CreditStartMonth    string   `json:"credit_start_month,omitempty"` // "2025-04"

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
