package client

import "strings"

// Ref is a lookup entity reference. The API may return it nested as
// {id, name}; outbound payloads always reduce it to the bare id.
type Ref struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Query carries the identity fields of a similarity check. Absent fields
// stay empty; an all-empty query means no check is performed at all.
type Query struct {
	Name        string `json:"name,omitempty"`
	Kana        string `json:"kana,omitempty"`
	Phone       string `json:"phone,omitempty"`
	MobilePhone string `json:"mobile_phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address,omitempty"`
}

// Empty reports whether a similarity check would be pointless. The server
// only matches on name, kana, phone, mobile and email; an address alone is
// rejected as unsearchable, so it does not count here either.
func (q Query) Empty() bool {
	for _, f := range []string{q.Name, q.Kana, q.Phone, q.MobilePhone, q.Email} {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Candidate is an existing customer returned by the similarity search.
// Read-only in this workflow.
type Candidate struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Kana        string   `json:"kana"`
	Phone       string   `json:"phone"`
	MobilePhone string   `json:"mobile_phone"`
	Email       string   `json:"email"`
	PostalCode  string   `json:"postal_code"`
	Address     string   `json:"address"`
	Score       int      `json:"score"`
	Reasons     []string `json:"reasons"`
}

// CustomerDetail is the full record behind a candidate, fetched before the
// operator confirms reuse.
type CustomerDetail struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Kana          string `json:"kana"`
	Email         string `json:"email"`
	PostalCode    string `json:"postal_code"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	MobilePhone   string `json:"mobile_phone"`
	Company       string `json:"company"`
	CompanyPhone  string `json:"company_phone"`
	Birthdate     string `json:"birthdate"`
	CustomerClass *Ref   `json:"customer_class"`
	Region        *Ref   `json:"region"`
	Gender        *Ref   `json:"gender"`
}

type SimilarResult struct {
	HasSimilar bool        `json:"has_similar"`
	Count      int         `json:"count"`
	Candidates []Candidate `json:"candidates"`
}

// Draft is the unsaved new-customer form state. Same field shape as a
// candidate but without an id. Reference fields are bare ids already.
type Draft struct {
	Name            string
	Kana            string
	Email           string
	PostalCode      string
	Address         string
	Phone           string
	MobilePhone     string
	Company         string
	CompanyPhone    string
	Birthdate       string
	CustomerClassID *uint
	StaffID         *uint
	RegionID        *uint
	GenderID        *uint
	FirstShopID     *uint
	LastShopID      *uint
}

// IdentityQuery extracts the fields a similarity check matches on.
func (d Draft) IdentityQuery() Query {
	return Query{
		Name:        d.Name,
		Kana:        d.Kana,
		Phone:       d.Phone,
		MobilePhone: d.MobilePhone,
		Email:       d.Email,
		Address:     d.Address,
	}
}

// Snapshot is the normalized outbound customer payload. Blank strings have
// been reduced to null, reference fields are bare ids, and SourceCustomer is
// set only when the snapshot came from a confirmed existing customer.
type Snapshot struct {
	Name         *string `json:"name"`
	Kana         *string `json:"kana"`
	Email        *string `json:"email"`
	PostalCode   *string `json:"postal_code"`
	Address      *string `json:"address"`
	Phone        *string `json:"phone"`
	MobilePhone  *string `json:"mobile_phone"`
	Company      *string `json:"company"`
	CompanyPhone *string `json:"company_phone"`
	Birthdate    *string `json:"birthdate"`

	CustomerClassID *uint `json:"customer_class"`
	StaffID         *uint `json:"staff"`
	RegionID        *uint `json:"region"`
	GenderID        *uint `json:"gender"`
	FirstShopID     *uint `json:"first_shop"`
	LastShopID      *uint `json:"last_shop"`

	SourceCustomer *uint `json:"source_customer"`
}

// BuildSnapshot is a pure transform from a draft or a confirmed candidate to
// the outbound payload. A candidate keeps its id as the source customer; a
// draft gets null. Blank-to-null normalization is idempotent.
func BuildSnapshot(draft Draft, candidate *CustomerDetail) Snapshot {
	if candidate != nil {
		id := candidate.ID
		s := Snapshot{
			Name:           blankToNull(candidate.Name),
			Kana:           blankToNull(candidate.Kana),
			Email:          blankToNull(candidate.Email),
			PostalCode:     blankToNull(candidate.PostalCode),
			Address:        blankToNull(candidate.Address),
			Phone:          blankToNull(candidate.Phone),
			MobilePhone:    blankToNull(candidate.MobilePhone),
			Company:        blankToNull(candidate.Company),
			CompanyPhone:   blankToNull(candidate.CompanyPhone),
			Birthdate:      blankToNull(dateOnly(candidate.Birthdate)),
			SourceCustomer: &id,
		}
		if candidate.CustomerClass != nil {
			s.CustomerClassID = &candidate.CustomerClass.ID
		}
		if candidate.Region != nil {
			s.RegionID = &candidate.Region.ID
		}
		if candidate.Gender != nil {
			s.GenderID = &candidate.Gender.ID
		}
		return s
	}
	return Snapshot{
		Name:            blankToNull(draft.Name),
		Kana:            blankToNull(draft.Kana),
		Email:           blankToNull(draft.Email),
		PostalCode:      blankToNull(draft.PostalCode),
		Address:         blankToNull(draft.Address),
		Phone:           blankToNull(draft.Phone),
		MobilePhone:     blankToNull(draft.MobilePhone),
		Company:         blankToNull(draft.Company),
		CompanyPhone:    blankToNull(draft.CompanyPhone),
		Birthdate:       blankToNull(draft.Birthdate),
		CustomerClassID: draft.CustomerClassID,
		StaffID:         draft.StaffID,
		RegionID:        draft.RegionID,
		GenderID:        draft.GenderID,
		FirstShopID:     draft.FirstShopID,
		LastShopID:      draft.LastShopID,
		SourceCustomer:  nil,
	}
}

// dateOnly reduces an RFC3339 timestamp the API returns to the date part
// write payloads expect.
func dateOnly(s string) string {
	if len(s) > 10 && s[10] == 'T' {
		return s[:10]
	}
	return s
}

func blankToNull(s string) *string {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	return &t
}
