package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"gorm.io/gorm"

	"motobms/internal/models"
)

func newOrdersMux(t *testing.T) (*gorm.DB, *http.ServeMux, *http.Cookie) {
	t.Helper()
	db := setupHandlerTestDB(t)
	_, cookie := seedSession(t, db)
	oh := NewOrdersHandler(db)
	eh := NewEstimatesHandler(db)
	mux := http.NewServeMux()
	mux.Handle("POST /orders/", secured(oh.Create))
	mux.Handle("GET /orders/{id}/", secured(oh.Get))
	mux.Handle("PUT /orders/{id}/", secured(oh.Update))
	mux.Handle("DELETE /orders/{id}/", secured(oh.Delete))
	mux.Handle("POST /orders/{id}/cancel/", secured(oh.Cancel))
	mux.Handle("POST /orders/prepare-from-estimate/{$}", secured(oh.PrepareFromEstimate))
	mux.Handle("POST /orders/from-estimate/{$}", secured(oh.FromEstimate))
	mux.Handle("POST /estimates/", secured(eh.Create))
	mux.Handle("GET /estimates/{id}/", secured(eh.Get))
	return db, mux, cookie
}

func TestOrderCreateWithExistingCustomer(t *testing.T) {
	db, mux, cookie := newOrdersMux(t)
	c := models.Customer{Name: "Tanaka Taro", Phone: "0312345678", Address: "Tokyo"}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	body := `{"customer_id":` + itoa(c.ID) + `,"items":[{"name":"Scooter","quantity":1,"unit_price":200000}]}`
	w := doJSON(t, mux, cookie, http.MethodPost, "/orders/", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var order models.Order
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if order.CustomerID == nil || *order.CustomerID != c.ID {
		t.Fatalf("customer linkage missing: %+v", order.CustomerID)
	}
	if order.PartyName != "Tanaka Taro" || order.Phone != "0312345678" {
		t.Fatalf("snapshot columns not frozen: %+v", order)
	}
	if order.Subtotal != 200000 || order.TaxTotal != 20000 || order.GrandTotal != 220000 {
		t.Fatalf("totals wrong: %+v", order)
	}
	if order.OrderNo == "" {
		t.Fatal("order number missing")
	}
}

func TestOrderCreateWithNewCustomer(t *testing.T) {
	db, mux, cookie := newOrdersMux(t)

	body := `{"new_customer":{"name":"Shinki Taro","email":"SHINKI@Example.com"},"items":[{"name":"Helmet","quantity":1,"unit_price":5000}]}`
	w := doJSON(t, mux, cookie, http.MethodPost, "/orders/", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var order models.Order
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if order.CustomerID == nil {
		t.Fatal("inline customer should be created and linked")
	}
	var created models.Customer
	if err := db.First(&created, *order.CustomerID).Error; err != nil {
		t.Fatalf("load created customer: %v", err)
	}
	if created.Name != "Shinki Taro" || created.Email != "shinki@example.com" {
		t.Fatalf("inline customer wrong: %+v", created)
	}
}

func TestOrderCreateRejectsBothCustomerForms(t *testing.T) {
	_, mux, cookie := newOrdersMux(t)
	body := `{"customer_id":1,"new_customer":{"name":"X"},"items":[{"name":"A","quantity":1}]}`
	w := doJSON(t, mux, cookie, http.MethodPost, "/orders/", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestOrderCreateRejectsNeither(t *testing.T) {
	_, mux, cookie := newOrdersMux(t)
	w := doJSON(t, mux, cookie, http.MethodPost, "/orders/", `{"items":[{"name":"A","quantity":1}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestEstimateCreateWithNewPartyThenConvert(t *testing.T) {
	db, mux, cookie := newOrdersMux(t)

	// estimate with a brand-new party
	body := `{"new_party":{"name":"Mitsumori Hanako","phone":"090-1111-2222"},"items":[{"name":"Scooter","quantity":1,"unit_price":150000},{"name":"Stamp duty","quantity":1,"unit_price":200,"tax_type":"non_taxable"}]}`
	w := doJSON(t, mux, cookie, http.MethodPost, "/estimates/", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("estimate create: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var est models.Estimate
	if err := json.Unmarshal(w.Body.Bytes(), &est); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if est.PartyID == nil {
		t.Fatal("party should have been created")
	}
	if est.Subtotal != 150200 || est.TaxTotal != 15000 || est.GrandTotal != 165200 {
		t.Fatalf("estimate totals wrong: %+v", est)
	}
	var party models.EstimateParty
	if err := db.First(&party, *est.PartyID).Error; err != nil {
		t.Fatalf("load party: %v", err)
	}
	if party.Phone != "09011112222" {
		t.Fatalf("party phone not normalized: %q", party.Phone)
	}
	if party.SourceCustomerID != nil {
		t.Fatal("free-text party must have no source customer")
	}

	// prefill
	w = doJSON(t, mux, cookie, http.MethodPost, "/orders/prepare-from-estimate/", `{"estimate_id":`+itoa(est.ID)+`}`)
	if w.Code != http.StatusOK {
		t.Fatalf("prepare: expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	// convert; no existing customer matches, so the party is promoted
	w = doJSON(t, mux, cookie, http.MethodPost, "/orders/from-estimate/", `{"estimate_id":`+itoa(est.ID)+`}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("convert: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var order models.Order
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if order.CustomerID == nil {
		t.Fatal("promoted customer should be linked")
	}
	if order.GrandTotal != est.GrandTotal {
		t.Fatalf("totals should carry over, got %v", order.GrandTotal)
	}
}

func TestConvertConflictsOnExactMatch(t *testing.T) {
	db, mux, cookie := newOrdersMux(t)
	existing := models.Customer{Name: "Kaburi Taro", Phone: "0312345678"}
	if err := db.Create(&existing).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	body := `{"new_party":{"name":"Kaburi Taro","phone":"03-1234-5678"},"items":[{"name":"Bike","quantity":1,"unit_price":100000}]}`
	w := doJSON(t, mux, cookie, http.MethodPost, "/estimates/", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("estimate create: got %d body=%s", w.Code, w.Body.String())
	}
	var est models.Estimate
	if err := json.Unmarshal(w.Body.Bytes(), &est); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, mux, cookie, http.MethodPost, "/orders/from-estimate/", `{"estimate_id":`+itoa(est.ID)+`}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with candidates, got %d body=%s", w.Code, w.Body.String())
	}
	var pending struct {
		NeedCustomerSelect bool `json:"need_customer_select"`
		Candidates         []struct {
			ID uint `json:"id"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !pending.NeedCustomerSelect || len(pending.Candidates) != 1 || pending.Candidates[0].ID != existing.ID {
		t.Fatalf("unexpected selection payload: %+v", pending)
	}

	// resolving with the candidate id completes the conversion
	w = doJSON(t, mux, cookie, http.MethodPost, "/orders/from-estimate/",
		`{"estimate_id":`+itoa(est.ID)+`,"customer_id":`+itoa(existing.ID)+`}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 after selection, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestEstimateCreateRejectsPartyIDAndNewParty(t *testing.T) {
	_, mux, cookie := newOrdersMux(t)
	body := `{"party_id":1,"new_party":{"name":"X"},"items":[{"name":"A","quantity":1}]}`
	w := doJSON(t, mux, cookie, http.MethodPost, "/estimates/", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func createOrder(t *testing.T, mux *http.ServeMux, cookie *http.Cookie) models.Order {
	t.Helper()
	body := `{"new_customer":{"name":"Chumon Taro"},"items":[{"name":"Bike","quantity":1,"unit_price":100000}]}`
	w := doJSON(t, mux, cookie, http.MethodPost, "/orders/", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create order: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var o models.Order
	if err := json.Unmarshal(w.Body.Bytes(), &o); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return o
}

func TestOrderUpdateDateAndShop(t *testing.T) {
	db, mux, cookie := newOrdersMux(t)
	shop := models.Shop{Name: "Branch"}
	if err := db.Create(&shop).Error; err != nil {
		t.Fatalf("seed shop: %v", err)
	}
	o := createOrder(t, mux, cookie)

	body := `{"order_date":"2025-06-15","shop":` + itoa(shop.ID) + `}`
	w := doJSON(t, mux, cookie, http.MethodPut, "/orders/"+itoa(o.ID)+"/", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var updated models.Order
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.OrderDate == nil || updated.OrderDate.Format("2006-01-02") != "2025-06-15" {
		t.Fatalf("order date not moved: %+v", updated.OrderDate)
	}
	if updated.ShopID == nil || *updated.ShopID != shop.ID {
		t.Fatalf("shop not moved: %+v", updated.ShopID)
	}
	// totals stay frozen
	if updated.GrandTotal != o.GrandTotal {
		t.Fatalf("totals must not change on update: %v vs %v", updated.GrandTotal, o.GrandTotal)
	}

	w = doJSON(t, mux, cookie, http.MethodPut, "/orders/"+itoa(o.ID)+"/", `{"order_date":"not-a-date"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestOrderDeleteRequiresCancellation(t *testing.T) {
	db, mux, cookie := newOrdersMux(t)
	o := createOrder(t, mux, cookie)

	w := doJSON(t, mux, cookie, http.MethodDelete, "/orders/"+itoa(o.ID)+"/", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("active order must not be deletable, got %d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, cookie, http.MethodPost, "/orders/"+itoa(o.ID)+"/cancel/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	w = doJSON(t, mux, cookie, http.MethodDelete, "/orders/"+itoa(o.ID)+"/", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d body=%s", w.Code, w.Body.String())
	}

	var orders, items int64
	db.Model(&models.Order{}).Where("id = ?", o.ID).Count(&orders)
	db.Model(&models.OrderItem{}).Where("order_id = ?", o.ID).Count(&items)
	if orders != 0 || items != 0 {
		t.Fatalf("order and lines should be gone, got %d/%d", orders, items)
	}
}

func TestOrderDeleteBlockedByDeliveries(t *testing.T) {
	db, mux, cookie := newOrdersMux(t)
	o := createOrder(t, mux, cookie)
	w := doJSON(t, mux, cookie, http.MethodPost, "/orders/"+itoa(o.ID)+"/cancel/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: got %d", w.Code)
	}
	if err := db.Create(&models.Delivery{OrderID: o.ID}).Error; err != nil {
		t.Fatalf("seed delivery: %v", err)
	}

	w = doJSON(t, mux, cookie, http.MethodDelete, "/orders/"+itoa(o.ID)+"/", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("delivered order must stay, got %d body=%s", w.Code, w.Body.String())
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
