package services

import (
	"time"

	"gorm.io/gorm"

	"motobms/internal/models"
	"motobms/internal/textnorm"
	"motobms/internal/validation"
)

// CustomerInput is the write payload shared by customer create/update, the
// new_customer branch of order creation, and the new_party branch of estimate
// creation. Reference fields arrive as bare ids only; string fields are
// pointers so blank and absent both normalize to null.
type CustomerInput struct {
	Name         *string `json:"name"`
	Kana         *string `json:"kana"`
	Email        *string `json:"email"`
	PostalCode   *string `json:"postal_code"`
	Address      *string `json:"address"`
	Phone        *string `json:"phone"`
	MobilePhone  *string `json:"mobile_phone"`
	Company      *string `json:"company"`
	CompanyPhone *string `json:"company_phone"`
	Birthdate    *string `json:"birthdate"` // "2006-01-02"

	CustomerClassID *uint `json:"customer_class"`
	StaffID         *uint `json:"staff"`
	RegionID        *uint `json:"region"`
	GenderID        *uint `json:"gender"`
	FirstShopID     *uint `json:"first_shop"`
	LastShopID      *uint `json:"last_shop"`

	// Linkage set by the dedup flow: present when the payload was built from
	// a confirmed existing customer.
	SourceCustomerID *uint `json:"source_customer"`
}

// Normalize applies the input-edge normalization once: blanks to null,
// email lowercased, postal and phone numbers stripped of separators.
func (in *CustomerInput) Normalize() {
	in.Name = textnorm.BlankToNull(in.Name)
	in.Kana = textnorm.BlankToNull(in.Kana)
	in.Email = textnorm.BlankToNull(in.Email)
	in.PostalCode = textnorm.BlankToNull(in.PostalCode)
	in.Address = textnorm.BlankToNull(in.Address)
	in.Phone = textnorm.BlankToNull(in.Phone)
	in.MobilePhone = textnorm.BlankToNull(in.MobilePhone)
	in.Company = textnorm.BlankToNull(in.Company)
	in.CompanyPhone = textnorm.BlankToNull(in.CompanyPhone)
	in.Birthdate = textnorm.BlankToNull(in.Birthdate)

	if in.Email != nil {
		e := textnorm.NormalizeEmail(*in.Email)
		in.Email = &e
	}
	if in.PostalCode != nil {
		p := textnorm.NormalizePostal(*in.PostalCode)
		in.PostalCode = &p
	}
	if in.Phone != nil {
		p := textnorm.NormalizePhone(*in.Phone)
		in.Phone = &p
	}
	if in.MobilePhone != nil {
		p := textnorm.NormalizePhone(*in.MobilePhone)
		in.MobilePhone = &p
	}
}

func (in CustomerInput) Validate(v validation.Violations) {
	validation.Required("name", deref(in.Name), v)
	validation.Email("email", deref(in.Email), v)
	validation.MaxLen("name", deref(in.Name), 100, v)
	validation.MaxLen("kana", deref(in.Kana), 100, v)
	if in.Birthdate != nil {
		if _, err := time.Parse("2006-01-02", *in.Birthdate); err != nil {
			v["birthdate"] = "invalid_date"
		}
	}
}

// Apply copies the normalized input onto a Customer record.
func (in CustomerInput) Apply(c *models.Customer) {
	c.Name = deref(in.Name)
	c.Kana = deref(in.Kana)
	c.Email = deref(in.Email)
	c.PostalCode = deref(in.PostalCode)
	c.Address = deref(in.Address)
	c.Phone = deref(in.Phone)
	c.MobilePhone = deref(in.MobilePhone)
	c.Company = deref(in.Company)
	c.CompanyPhone = deref(in.CompanyPhone)
	c.Birthdate = parseDate(in.Birthdate)
	c.CustomerClassID = in.CustomerClassID
	c.StaffID = in.StaffID
	c.RegionID = in.RegionID
	c.GenderID = in.GenderID
	c.FirstShopID = in.FirstShopID
	c.LastShopID = in.LastShopID
}

// ApplyToParty copies the normalized input onto an estimate party, carrying
// the source-customer linkage when the dedup flow confirmed an existing one.
func (in CustomerInput) ApplyToParty(p *models.EstimateParty) {
	p.SourceCustomerID = in.SourceCustomerID
	p.Name = deref(in.Name)
	p.Kana = deref(in.Kana)
	p.Email = deref(in.Email)
	p.PostalCode = deref(in.PostalCode)
	p.Address = deref(in.Address)
	p.Phone = deref(in.Phone)
	p.MobilePhone = deref(in.MobilePhone)
	p.Company = deref(in.Company)
	p.CompanyPhone = deref(in.CompanyPhone)
	p.Birthdate = parseDate(in.Birthdate)
	p.CustomerClassID = in.CustomerClassID
	p.StaffID = in.StaffID
	p.RegionID = in.RegionID
	p.GenderID = in.GenderID
	p.FirstShopID = in.FirstShopID
	p.LastShopID = in.LastShopID
}

// PromoteParty creates a Customer from an estimate party and back-fills the
// party's source_customer so a later conversion reuses the same identity.
func PromoteParty(tx *gorm.DB, party *models.EstimateParty, fallbackShopID *uint) (*models.Customer, error) {
	firstShop := party.FirstShopID
	if firstShop == nil {
		firstShop = fallbackShopID
	}
	lastShop := party.LastShopID
	if lastShop == nil {
		lastShop = fallbackShopID
	}
	c := models.Customer{
		Name:            party.Name,
		Kana:            party.Kana,
		Email:           party.Email,
		PostalCode:      party.PostalCode,
		Address:         party.Address,
		Phone:           party.Phone,
		MobilePhone:     party.MobilePhone,
		Company:         party.Company,
		CompanyPhone:    party.CompanyPhone,
		Birthdate:       party.Birthdate,
		CustomerClassID: party.CustomerClassID,
		StaffID:         party.StaffID,
		RegionID:        party.RegionID,
		GenderID:        party.GenderID,
		FirstShopID:     firstShop,
		LastShopID:      lastShop,
	}
	if err := tx.Create(&c).Error; err != nil {
		return nil, err
	}
	party.SourceCustomerID = &c.ID
	if err := tx.Model(party).Update("source_customer_id", c.ID).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil
	}
	return &t
}
