package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"gorm.io/gorm"

	"motobms/internal/models"
)

func seedOrderForDelivery(t *testing.T, db *gorm.DB) (models.Order, []models.OrderItem) {
	t.Helper()
	o := models.Order{OrderNo: "20250601-1", PartyName: "Tanaka", Status: models.OrderStatusOrdered}
	if err := db.Create(&o).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	items := []models.OrderItem{
		{OrderID: o.ID, Name: "Bike", Quantity: 1},
		{OrderID: o.ID, Name: "Helmet", Quantity: 2},
	}
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}
	return o, items
}

func TestDeliveryCreateRecalculatesOrder(t *testing.T) {
	db := setupHandlerTestDB(t)
	_, cookie := seedSession(t, db)
	o, items := seedOrderForDelivery(t, db)
	h := NewDeliveriesHandler(db)
	mux := http.NewServeMux()
	mux.Handle("POST /deliveries/", secured(h.Create))

	body := `{"order_id":` + itoa(o.ID) + `,"delivery_date":"2025-06-02","items":[{"order_item_id":` + itoa(items[0].ID) + `,"quantity":1}]}`
	w := doJSON(t, mux, cookie, http.MethodPost, "/deliveries/", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		DeliveryStatus string `json:"delivery_status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DeliveryStatus != models.DeliveryPartial {
		t.Fatalf("one of two lines delivered should be partial, got %s", resp.DeliveryStatus)
	}

	var reloadedItem models.OrderItem
	if err := db.First(&reloadedItem, items[0].ID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if reloadedItem.DeliveryStatus != models.ItemDeliveryDelivered {
		t.Fatalf("fully delivered line should flip, got %s", reloadedItem.DeliveryStatus)
	}

	// delivering the rest completes the order
	body = `{"order_id":` + itoa(o.ID) + `,"delivery_date":"2025-06-05","items":[{"order_item_id":` + itoa(items[1].ID) + `,"quantity":2}]}`
	w = doJSON(t, mux, cookie, http.MethodPost, "/deliveries/", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var order models.Order
	if err := db.First(&order, o.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if order.DeliveryStatus != models.DeliveryDelivered {
		t.Fatalf("expected delivered, got %s", order.DeliveryStatus)
	}
	if order.FinalDeliveryDate == nil || order.FinalDeliveryDate.Format("2006-01-02") != "2025-06-05" {
		t.Fatalf("final delivery date wrong: %v", order.FinalDeliveryDate)
	}
}

func TestDeliveryRejectsForeignOrderItem(t *testing.T) {
	db := setupHandlerTestDB(t)
	_, cookie := seedSession(t, db)
	o, _ := seedOrderForDelivery(t, db)
	other := models.Order{OrderNo: "20250601-2", PartyName: "Other", Status: models.OrderStatusOrdered}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	foreign := models.OrderItem{OrderID: other.ID, Name: "Foreign", Quantity: 1}
	if err := db.Create(&foreign).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	h := NewDeliveriesHandler(db)
	mux := http.NewServeMux()
	mux.Handle("POST /deliveries/", secured(h.Create))

	body := `{"order_id":` + itoa(o.ID) + `,"items":[{"order_item_id":` + itoa(foreign.ID) + `,"quantity":1}]}`
	w := doJSON(t, mux, cookie, http.MethodPost, "/deliveries/", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}

	// nothing written: the whole delivery rolls back
	var count int64
	db.Model(&models.Delivery{}).Count(&count)
	if count != 0 {
		t.Fatalf("delivery should have rolled back, found %d", count)
	}
}

func TestDeliveryListForOrder(t *testing.T) {
	db := setupHandlerTestDB(t)
	_, cookie := seedSession(t, db)
	o, items := seedOrderForDelivery(t, db)
	other := models.Order{OrderNo: "20250601-2", PartyName: "Other", Status: models.OrderStatusOrdered}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	h := NewDeliveriesHandler(db)
	mux := http.NewServeMux()
	mux.Handle("POST /deliveries/", secured(h.Create))
	mux.Handle("GET /orders/{id}/deliveries/", secured(h.ListForOrder))

	body := `{"order_id":` + itoa(o.ID) + `,"items":[{"order_item_id":` + itoa(items[0].ID) + `,"quantity":1}]}`
	if w := doJSON(t, mux, cookie, http.MethodPost, "/deliveries/", body); w.Code != http.StatusCreated {
		t.Fatalf("seed delivery: got %d body=%s", w.Code, w.Body.String())
	}

	w := doJSON(t, mux, cookie, http.MethodGet, "/orders/"+itoa(o.ID)+"/deliveries/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var listed []models.Delivery
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 1 || listed[0].OrderID != o.ID {
		t.Fatalf("unexpected list: %+v", listed)
	}
	if len(listed[0].Items) != 1 {
		t.Fatalf("items should be preloaded: %+v", listed[0].Items)
	}

	// the other order has none; a missing order is a 404
	w = doJSON(t, mux, cookie, http.MethodGet, "/orders/"+itoa(other.ID)+"/deliveries/", "")
	if w.Code != http.StatusOK || w.Body.String() == "" {
		t.Fatalf("expected empty 200, got %d body=%s", w.Code, w.Body.String())
	}
	w = doJSON(t, mux, cookie, http.MethodGet, "/orders/9999/deliveries/", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}
