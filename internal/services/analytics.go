package services

import (
	"time"

	"gorm.io/gorm"

	"motobms/internal/models"
)

type SalesSummary struct {
	OrderCount int64   `json:"order_count"`
	Subtotal   float64 `json:"subtotal"`
	TaxTotal   float64 `json:"tax_total"`
	GrandTotal float64 `json:"grand_total"`
}

type DailySales struct {
	Date       string  `json:"date"`
	SalesCount int64   `json:"sales_count"`
	Subtotal   float64 `json:"subtotal"`
	TaxTotal   float64 `json:"tax_total"`
	GrandTotal float64 `json:"grand_total"`
}

type StaffSales struct {
	StaffID    *uint   `json:"staff_id"`
	StaffName  string  `json:"staff_name"`
	ItemCount  int64   `json:"item_count"`
	TotalSales float64 `json:"total_sales"`
}

type AnalyticsService struct {
	db *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService { return &AnalyticsService{db: db} }

func (s *AnalyticsService) scoped(shopID *uint) *gorm.DB {
	q := s.db.Model(&models.Order{}).Where("status <> ?", models.OrderStatusCancelled)
	if shopID != nil {
		q = q.Where("shop_id = ?", *shopID)
	}
	return q
}

func (s *AnalyticsService) Summary(shopID *uint) (SalesSummary, error) {
	var out SalesSummary
	err := s.scoped(shopID).
		Select("COUNT(id) AS order_count, COALESCE(SUM(subtotal),0) AS subtotal, COALESCE(SUM(tax_total),0) AS tax_total, COALESCE(SUM(grand_total),0) AS grand_total").
		Scan(&out).Error
	return out, err
}

func (s *AnalyticsService) Daily(shopID *uint, from, to *time.Time) ([]DailySales, error) {
	q := s.scoped(shopID).Where("order_date IS NOT NULL")
	if from != nil {
		q = q.Where("order_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("order_date <= ?", *to)
	}
	type row struct {
		Day        time.Time
		SalesCount int64
		Subtotal   float64
		TaxTotal   float64
		GrandTotal float64
	}
	var rows []row
	err := q.
		Select("order_date AS day, COUNT(id) AS sales_count, COALESCE(SUM(subtotal),0) AS subtotal, COALESCE(SUM(tax_total),0) AS tax_total, COALESCE(SUM(grand_total),0) AS grand_total").
		Group("order_date").
		Order("order_date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]DailySales, 0, len(rows))
	for _, r := range rows {
		out = append(out, DailySales{
			Date:       r.Day.Format("2006-01-02"),
			SalesCount: r.SalesCount,
			Subtotal:   r.Subtotal,
			TaxTotal:   r.TaxTotal,
			GrandTotal: r.GrandTotal,
		})
	}
	return out, nil
}

func (s *AnalyticsService) ByStaff(shopID *uint) ([]StaffSales, error) {
	q := s.db.Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("LEFT JOIN users ON users.id = order_items.staff_id").
		Where("orders.status <> ?", models.OrderStatusCancelled)
	if shopID != nil {
		q = q.Where("orders.shop_id = ?", *shopID)
	}
	var out []StaffSales
	err := q.
		Select("order_items.staff_id AS staff_id, COALESCE(users.display_name, '') AS staff_name, COUNT(order_items.id) AS item_count, COALESCE(SUM(order_items.subtotal),0) AS total_sales").
		Group("order_items.staff_id, users.display_name").
		Order("total_sales DESC").
		Scan(&out).Error
	return out, err
}
