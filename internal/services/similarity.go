package services

import (
	"sort"

	"gorm.io/gorm"

	"motobms/internal/models"
	"motobms/internal/textnorm"
)

// Match weights. Exact contact-point matches dominate partial text matches.
const (
	weightEmailExact     = 100
	weightPhoneExact     = 80
	weightMobileExact    = 80
	weightNamePartial    = 30
	weightKanaPartial    = 30
	weightAddressPartial = 10

	maxCandidates = 20
	scanBatchSize = 500
)

// IdentityQuery carries the fields a duplicate check matches on. Any subset
// may be set; Searchable reports whether the query is specific enough to run.
type IdentityQuery struct {
	Name        string `json:"name"`
	Kana        string `json:"kana"`
	Phone       string `json:"phone"`
	MobilePhone string `json:"mobile_phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
}

// Searchable requires at least one of name/kana/phone/mobile/email. Address
// alone is rejected: it matches half the town.
func (q IdentityQuery) Searchable() bool {
	return textnorm.Fold(q.Name) != "" ||
		textnorm.Fold(q.Kana) != "" ||
		textnorm.NormalizePhone(q.Phone) != "" ||
		textnorm.NormalizePhone(q.MobilePhone) != "" ||
		textnorm.NormalizeEmail(q.Email) != ""
}

// Empty reports whether every field, address included, is blank.
func (q IdentityQuery) Empty() bool {
	return !q.Searchable() && textnorm.Fold(q.Address) == ""
}

// SimilarCandidate is one scored hit with the reasons it matched.
type SimilarCandidate struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Kana        string   `json:"kana,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	MobilePhone string   `json:"mobile_phone,omitempty"`
	Email       string   `json:"email,omitempty"`
	Address     string   `json:"address,omitempty"`
	Score       int      `json:"score"`
	Reasons     []string `json:"reasons"`
}

type SimilarResult struct {
	HasSimilar bool               `json:"has_similar"`
	Count      int                `json:"count"`
	Candidates []SimilarCandidate `json:"candidates"`
}

// SimilarityService finds existing customers that probably are the person
// being typed in. Phone numbers are compared digits-only on both sides, name
// and kana are compared width- and kana-folded, so formatting differences do
// not hide a duplicate.
type SimilarityService struct {
	db *gorm.DB
}

func NewSimilarityService(db *gorm.DB) *SimilarityService { return &SimilarityService{db: db} }

func (s *SimilarityService) FindSimilar(q IdentityQuery) (SimilarResult, error) {
	email := textnorm.NormalizeEmail(q.Email)
	phone := textnorm.NormalizePhone(q.Phone)
	mobile := textnorm.NormalizePhone(q.MobilePhone)

	var matched []SimilarCandidate
	// Normalized comparison cannot be pushed into portable SQL, so scan in
	// batches and score in Go. Shop-scale data keeps this cheap.
	var batch []models.Customer
	err := s.db.Model(&models.Customer{}).
		Select("id", "name", "kana", "phone", "mobile_phone", "email", "address").
		FindInBatches(&batch, scanBatchSize, func(_ *gorm.DB, _ int) error {
			for _, c := range batch {
				if cand, ok := scoreCustomer(c, q, email, phone, mobile); ok {
					matched = append(matched, cand)
				}
			}
			return nil
		}).Error
	if err != nil {
		return SimilarResult{}, err
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Score != matched[j].Score {
			return matched[i].Score > matched[j].Score
		}
		return matched[i].ID < matched[j].ID
	})
	if len(matched) > maxCandidates {
		matched = matched[:maxCandidates]
	}
	return SimilarResult{HasSimilar: len(matched) > 0, Count: len(matched), Candidates: matched}, nil
}

func scoreCustomer(c models.Customer, q IdentityQuery, email, phone, mobile string) (SimilarCandidate, bool) {
	score := 0
	var reasons []string

	if email != "" && textnorm.NormalizeEmail(c.Email) == email {
		score += weightEmailExact
		reasons = append(reasons, "email_exact")
	}
	if phone != "" && textnorm.NormalizePhone(c.Phone) == phone {
		score += weightPhoneExact
		reasons = append(reasons, "phone_exact")
	}
	if mobile != "" && textnorm.NormalizePhone(c.MobilePhone) == mobile {
		score += weightMobileExact
		reasons = append(reasons, "mobile_phone_exact")
	}
	if textnorm.ContainsFolded(c.Name, q.Name) {
		score += weightNamePartial
		reasons = append(reasons, "name_partial")
	}
	if textnorm.ContainsFolded(c.Kana, q.Kana) {
		score += weightKanaPartial
		reasons = append(reasons, "kana_partial")
	}
	if textnorm.ContainsFolded(c.Address, q.Address) {
		score += weightAddressPartial
		reasons = append(reasons, "address_partial")
	}

	if score == 0 {
		return SimilarCandidate{}, false
	}
	return SimilarCandidate{
		ID:          c.ID,
		Name:        c.Name,
		Kana:        c.Kana,
		Phone:       c.Phone,
		MobilePhone: c.MobilePhone,
		Email:       c.Email,
		Address:     c.Address,
		Score:       score,
		Reasons:     reasons,
	}, true
}
