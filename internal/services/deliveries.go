package services

import (
	"time"

	"gorm.io/gorm"

	"motobms/internal/models"
)

// RecalcOrderDelivery recomputes an order's delivery status from delivered
// quantities per line and stamps the final delivery date when everything is
// out the door.
func RecalcOrderDelivery(tx *gorm.DB, orderID uint) (string, error) {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return "", err
	}
	var deliveries []models.Delivery
	if err := tx.Preload("Items").Where("order_id = ?", orderID).Find(&deliveries).Error; err != nil {
		return "", err
	}

	// Aggregates computed in Go: date columns do not survive SQL aggregate
	// functions the same way on sqlite and postgres.
	delivered := make(map[uint]float64)
	var lastDate *time.Time
	for _, d := range deliveries {
		for _, di := range d.Items {
			delivered[di.OrderItemID] += di.Quantity
		}
		if d.DeliveryDate != nil && (lastDate == nil || d.DeliveryDate.After(*lastDate)) {
			lastDate = d.DeliveryDate
		}
	}

	completed, touched := 0, 0
	for _, oi := range items {
		qty := delivered[oi.ID]
		if qty <= 0 {
			continue
		}
		touched++
		if qty >= oi.Quantity {
			completed++
		}
	}

	status := models.DeliveryNotDelivered
	switch {
	case len(items) == 0:
	case completed == len(items):
		status = models.DeliveryDelivered
	case touched > 0:
		status = models.DeliveryPartial
	}

	updates := map[string]any{"delivery_status": status, "final_delivery_date": nil}
	if status == models.DeliveryDelivered && lastDate != nil {
		updates["final_delivery_date"] = *lastDate
	}
	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Updates(updates).Error; err != nil {
		return "", err
	}
	return status, nil
}
