package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"motobms/internal/models"
)

func seedOrderWithItems(t *testing.T, db *gorm.DB) (models.Order, []models.OrderItem) {
	t.Helper()
	o := models.Order{OrderNo: "20250601-1", PartyName: "Tanaka", Status: models.OrderStatusOrdered}
	if err := db.Create(&o).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	items := []models.OrderItem{
		{OrderID: o.ID, Name: "Bike", Quantity: 1, UnitPrice: 100000},
		{OrderID: o.ID, Name: "Helmet", Quantity: 2, UnitPrice: 5000},
	}
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}
	return o, items
}

func deliver(t *testing.T, db *gorm.DB, orderID uint, date time.Time, lines map[uint]float64) {
	t.Helper()
	d := models.Delivery{OrderID: orderID, DeliveryDate: &date}
	if err := db.Create(&d).Error; err != nil {
		t.Fatalf("seed delivery: %v", err)
	}
	for itemID, qty := range lines {
		di := models.DeliveryItem{DeliveryID: d.ID, OrderItemID: itemID, Quantity: qty}
		if err := db.Create(&di).Error; err != nil {
			t.Fatalf("seed delivery item: %v", err)
		}
	}
}

func TestRecalcOrderDeliveryNotDelivered(t *testing.T) {
	db := setupServiceTestDB(t)
	o, _ := seedOrderWithItems(t, db)

	status, err := RecalcOrderDelivery(db, o.ID)
	if err != nil {
		t.Fatalf("recalc: %v", err)
	}
	if status != models.DeliveryNotDelivered {
		t.Fatalf("expected not_delivered, got %s", status)
	}
}

func TestRecalcOrderDeliveryPartial(t *testing.T) {
	db := setupServiceTestDB(t)
	o, items := seedOrderWithItems(t, db)
	deliver(t, db, o.ID, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), map[uint]float64{items[0].ID: 1})

	status, err := RecalcOrderDelivery(db, o.ID)
	if err != nil {
		t.Fatalf("recalc: %v", err)
	}
	if status != models.DeliveryPartial {
		t.Fatalf("expected partial, got %s", status)
	}
	var reloaded models.Order
	if err := db.First(&reloaded, o.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.FinalDeliveryDate != nil {
		t.Fatal("final delivery date must stay unset while partial")
	}
}

func TestRecalcOrderDeliveryPartialQuantity(t *testing.T) {
	db := setupServiceTestDB(t)
	o, items := seedOrderWithItems(t, db)
	// one of two helmets delivered, bike delivered in full
	deliver(t, db, o.ID, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), map[uint]float64{items[0].ID: 1, items[1].ID: 1})

	status, err := RecalcOrderDelivery(db, o.ID)
	if err != nil {
		t.Fatalf("recalc: %v", err)
	}
	if status != models.DeliveryPartial {
		t.Fatalf("a partially delivered line keeps the order partial, got %s", status)
	}
}

func TestRecalcOrderDeliveryComplete(t *testing.T) {
	db := setupServiceTestDB(t)
	o, items := seedOrderWithItems(t, db)
	first := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	second := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	deliver(t, db, o.ID, first, map[uint]float64{items[0].ID: 1, items[1].ID: 1})
	deliver(t, db, o.ID, second, map[uint]float64{items[1].ID: 1})

	status, err := RecalcOrderDelivery(db, o.ID)
	if err != nil {
		t.Fatalf("recalc: %v", err)
	}
	if status != models.DeliveryDelivered {
		t.Fatalf("expected delivered, got %s", status)
	}
	var reloaded models.Order
	if err := db.First(&reloaded, o.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.FinalDeliveryDate == nil || !reloaded.FinalDeliveryDate.Equal(second) {
		t.Fatalf("final delivery date should be the latest delivery, got %v", reloaded.FinalDeliveryDate)
	}
}
