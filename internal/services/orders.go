package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"motobms/internal/models"
)

const taxRate = 0.10

var (
	ErrEstimateNotFound = errors.New("estimate not found")
	ErrEstimateNoParty  = errors.New("estimate has no party")
	ErrCustomerNotFound = errors.New("customer not found")
)

// OrderService owns order numbering, totals, and the estimate→order
// conversion including its customer resolution step.
type OrderService struct {
	db *gorm.DB
}

func NewOrderService(db *gorm.DB) *OrderService { return &OrderService{db: db} }

// NextOrderNo issues "YYYYMMDD-N" where N restarts at 1 each day.
func (s *OrderService) NextOrderNo(tx *gorm.DB, day time.Time) (string, error) {
	prefix := day.Format("20060102")
	var nos []string
	if err := tx.Model(&models.Order{}).
		Where("order_no LIKE ?", prefix+"-%").
		Pluck("order_no", &nos).Error; err != nil {
		return "", err
	}
	max := 0
	for _, no := range nos {
		if n, err := strconv.Atoi(strings.TrimPrefix(no, prefix+"-")); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%d", prefix, max+1), nil
}

// ComputeOrderTotals sums line subtotals and applies the consumption tax to
// taxable lines, truncated to whole yen.
func ComputeOrderTotals(items []models.OrderItem) (subtotal, discountTotal, taxTotal, grandTotal float64) {
	var taxable float64
	for _, it := range items {
		line := it.LineSubtotal()
		subtotal += line
		discountTotal += it.Discount
		if it.TaxType != models.TaxTypeNonTaxable {
			taxable += line
		}
	}
	taxTotal = math.Floor(taxable * taxRate)
	grandTotal = subtotal + taxTotal
	return
}

// ComputeEstimateTotals mirrors ComputeOrderTotals for estimate lines.
func ComputeEstimateTotals(items []models.EstimateItem) (subtotal, discountTotal, taxTotal, grandTotal float64) {
	var taxable float64
	for _, it := range items {
		line := it.LineSubtotal()
		subtotal += line
		discountTotal += it.Discount
		if it.TaxType != models.TaxTypeNonTaxable {
			taxable += line
		}
	}
	taxTotal = math.Floor(taxable * taxRate)
	grandTotal = subtotal + taxTotal
	return
}

// ApplySnapshot freezes the chosen customer's details onto the order's
// snapshot columns. Later customer edits leave these untouched.
func ApplySnapshot(o *models.Order, c *models.Customer) {
	o.CustomerID = &c.ID
	o.PartyName = c.Name
	o.PartyKana = c.Kana
	o.Phone = c.Phone
	o.Email = c.Email
	o.PostalCode = c.PostalCode
	o.Address = c.Address
}

// ConversionResult is what converting an estimate yields: either an order, or
// a request for the operator to pick among exact-matching customers.
type ConversionResult struct {
	Order              *models.Order
	NeedCustomerSelect bool
	Candidates         []SimilarCandidate
}

// ConvertFromEstimate turns an estimate into an order inside one transaction.
// Customer resolution, in priority order: the party's source customer; an
// explicitly selected customer; an exact name+contact auto-match (returned as
// candidates for the operator to confirm, not silently reused); otherwise the
// party is promoted to a brand-new customer.
func (s *OrderService) ConvertFromEstimate(estimateID uint, selectedCustomerID *uint, userID uint, userShopID *uint) (ConversionResult, error) {
	var result ConversionResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var est models.Estimate
		if err := tx.Preload("Party").Preload("Items").First(&est, estimateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEstimateNotFound
			}
			return err
		}
		if est.Party == nil {
			return ErrEstimateNoParty
		}
		party := est.Party

		var customer *models.Customer
		switch {
		case party.SourceCustomerID != nil:
			var c models.Customer
			if err := tx.First(&c, *party.SourceCustomerID).Error; err != nil {
				return err
			}
			customer = &c
		case selectedCustomerID != nil:
			var c models.Customer
			if err := tx.First(&c, *selectedCustomerID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrCustomerNotFound
				}
				return err
			}
			customer = &c
		default:
			var matches []models.Customer
			q := tx.Where("name = ?", party.Name)
			if party.Phone != "" && party.Email != "" {
				q = q.Where("phone = ? OR email = ?", party.Phone, party.Email)
			} else if party.Phone != "" {
				q = q.Where("phone = ?", party.Phone)
			} else if party.Email != "" {
				q = q.Where("email = ?", party.Email)
			} else {
				q = q.Where("1 = 0")
			}
			if err := q.Find(&matches).Error; err != nil {
				return err
			}
			if len(matches) > 0 {
				result.NeedCustomerSelect = true
				for _, m := range matches {
					result.Candidates = append(result.Candidates, SimilarCandidate{
						ID: m.ID, Name: m.Name, Phone: m.Phone, Email: m.Email, Address: m.Address,
					})
				}
				return nil
			}
			promoted, err := PromoteParty(tx, party, est.ShopID)
			if err != nil {
				return err
			}
			customer = promoted
		}

		shopID := est.ShopID
		if shopID == nil {
			shopID = userShopID
		}
		now := time.Now()
		orderNo, err := s.NextOrderNo(tx, now)
		if err != nil {
			return err
		}
		today := now.Truncate(24 * time.Hour)
		order := models.Order{
			OrderNo:       orderNo,
			ShopID:        shopID,
			EstimateID:    &est.ID,
			Status:        models.OrderStatusOrdered,
			OrderDate:     &today,
			Subtotal:      est.Subtotal,
			DiscountTotal: est.DiscountTotal,
			TaxTotal:      est.TaxTotal,
			GrandTotal:    est.GrandTotal,
			CreatedByID:   &userID,
		}
		ApplySnapshot(&order, customer)
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, it := range est.Items {
			oi := models.OrderItem{
				OrderID:   order.ID,
				Name:      it.Name,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
				TaxType:   it.TaxType,
				Discount:  it.Discount,
				Subtotal:  it.Subtotal,
				SaleType:  it.SaleType,
				StaffID:   it.StaffID,
			}
			if err := tx.Create(&oi).Error; err != nil {
				return err
			}
		}

		// Carry the estimate's payments over to the order.
		var pays []models.Payment
		if err := tx.Where("owner_type = ? AND owner_id = ?", models.PaymentOwnerEstimate, est.ID).Find(&pays).Error; err != nil {
			return err
		}
		for _, p := range pays {
			cp := p
			cp.ID = 0
			cp.OwnerType = models.PaymentOwnerOrder
			cp.OwnerID = order.ID
			if err := tx.Create(&cp).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&est).Update("status", models.EstimateStatusOrdered).Error; err != nil {
			return err
		}
		result.Order = &order
		return nil
	})
	return result, err
}

// PrefillItem and Prefill are the prepare-from-estimate response: the party
// as a customer draft with bare-id references, plus lines and totals.
type PrefillItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	TaxType   string  `json:"tax_type"`
	Discount  float64 `json:"discount"`
	Subtotal  float64 `json:"subtotal"`
	SaleType  string  `json:"sale_type,omitempty"`
	StaffID   *uint   `json:"staff_id,omitempty"`
}

type Prefill struct {
	EstimateID        uint                 `json:"estimate_id"`
	CustomerCandidate models.EstimateParty `json:"customer_candidate"`
	Items             []PrefillItem        `json:"items"`
	Payments          []models.Payment     `json:"payments"`
	Totals            map[string]float64   `json:"totals"`
}

func (s *OrderService) PrepareFromEstimate(estimateID uint) (*Prefill, error) {
	var est models.Estimate
	if err := s.db.Preload("Party").Preload("Items").First(&est, estimateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEstimateNotFound
		}
		return nil, err
	}
	if est.Party == nil {
		return nil, ErrEstimateNoParty
	}
	pf := &Prefill{
		EstimateID:        est.ID,
		CustomerCandidate: *est.Party,
		Totals: map[string]float64{
			"subtotal":       est.Subtotal,
			"discount_total": est.DiscountTotal,
			"tax_total":      est.TaxTotal,
			"grand_total":    est.GrandTotal,
		},
	}
	for _, it := range est.Items {
		pf.Items = append(pf.Items, PrefillItem{
			Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice,
			TaxType: it.TaxType, Discount: it.Discount, Subtotal: it.Subtotal,
			SaleType: it.SaleType, StaffID: it.StaffID,
		})
	}
	if err := s.db.Where("owner_type = ? AND owner_id = ?", models.PaymentOwnerEstimate, est.ID).Find(&pf.Payments).Error; err != nil {
		return nil, err
	}
	return pf, nil
}
