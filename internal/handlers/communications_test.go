package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"gorm.io/gorm"

	"motobms/internal/models"
)

func newCommunicationsMux(t *testing.T) (*gorm.DB, *http.ServeMux, models.User, *http.Cookie) {
	t.Helper()
	db := setupHandlerTestDB(t)
	user, cookie := seedSession(t, db)
	h := NewCommunicationsHandler(db)
	mux := http.NewServeMux()
	mux.Handle("GET /customers/{id}/business_communications/", secured(h.ListForCustomer))
	mux.Handle("POST /customers/{id}/business_communications/", secured(h.CreateForCustomer))
	mux.Handle("GET /business_communications/inbox/", secured(h.Inbox))
	mux.Handle("PUT /business_communications/{id}/status/", secured(h.UpdateStatus))
	return db, mux, user, cookie
}

func seedTwoShops(t *testing.T, db *gorm.DB) (models.Shop, models.Shop) {
	t.Helper()
	hq := models.Shop{Code: "HQ", Name: "本店"}
	branch := models.Shop{Code: "BR", Name: "支店"}
	for _, s := range []*models.Shop{&hq, &branch} {
		if err := db.Create(s).Error; err != nil {
			t.Fatalf("create shop: %v", err)
		}
	}
	return hq, branch
}

func TestCommunicationCreateUsesSessionShop(t *testing.T) {
	db, mux, user, cookie := newCommunicationsMux(t)
	hq, branch := seedTwoShops(t, db)
	if err := db.Model(&user).Update("shop_id", hq.ID).Error; err != nil {
		t.Fatalf("assign shop: %v", err)
	}
	customer := models.Customer{Name: "田中太郎"}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}

	body := fmt.Sprintf(`{"receiver_shop":%d,"title":"来店予定あり","content":"次回点検の相談"}`, branch.ID)
	w := doJSON(t, mux, cookie, http.MethodPost, "/customers/"+itoa(customer.ID)+"/business_communications/", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d, want 201: %s", w.Code, w.Body.String())
	}
	var got models.BusinessCommunication
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.SenderShopID == nil || *got.SenderShopID != hq.ID {
		t.Fatalf("sender shop = %v, want %d from the session user", got.SenderShopID, hq.ID)
	}
	if got.CreatedByID != user.ID {
		t.Fatalf("created by = %d, want %d", got.CreatedByID, user.ID)
	}
	if got.Status != models.CommunicationPending {
		t.Fatalf("status = %q, want pending", got.Status)
	}

	w = doJSON(t, mux, cookie, http.MethodGet, "/customers/"+itoa(customer.ID)+"/business_communications/", "")
	var list []models.BusinessCommunication
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 || list[0].Title != "来店予定あり" {
		t.Fatalf("customer thread = %+v, want the created note", list)
	}

	// missing title and receiver shop are both reported
	w = doJSON(t, mux, cookie, http.MethodPost, "/customers/"+itoa(customer.ID)+"/business_communications/", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty body: got %d, want 400", w.Code)
	}

	w = doJSON(t, mux, cookie, http.MethodPost, "/customers/999/business_communications/", body)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing customer: got %d, want 404", w.Code)
	}
}

func TestCommunicationInboxScopedToReceiverShop(t *testing.T) {
	db, mux, user, cookie := newCommunicationsMux(t)
	hq, branch := seedTwoShops(t, db)
	customer := models.Customer{Name: "佐藤花子"}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	for _, c := range []models.BusinessCommunication{
		{CustomerID: customer.ID, ReceiverShopID: hq.ID, CreatedByID: user.ID, Title: "本店宛", Status: models.CommunicationPending},
		{CustomerID: customer.ID, ReceiverShopID: branch.ID, CreatedByID: user.ID, Title: "支店宛", Status: models.CommunicationPending},
		{CustomerID: customer.ID, ReceiverShopID: hq.ID, CreatedByID: user.ID, Title: "対応済み", Status: models.CommunicationDone},
	} {
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("create communication: %v", err)
		}
	}

	// no shop on the session user means an empty inbox
	w := doJSON(t, mux, cookie, http.MethodGet, "/business_communications/inbox/", "")
	var inbox []models.BusinessCommunication
	json.Unmarshal(w.Body.Bytes(), &inbox)
	if len(inbox) != 0 {
		t.Fatalf("shopless inbox = %+v, want empty", inbox)
	}

	if err := db.Model(&user).Update("shop_id", hq.ID).Error; err != nil {
		t.Fatalf("assign shop: %v", err)
	}
	w = doJSON(t, mux, cookie, http.MethodGet, "/business_communications/inbox/", "")
	inbox = nil
	json.Unmarshal(w.Body.Bytes(), &inbox)
	if len(inbox) != 2 {
		t.Fatalf("inbox has %d entries, want the 2 addressed to HQ: %+v", len(inbox), inbox)
	}

	w = doJSON(t, mux, cookie, http.MethodGet, "/business_communications/inbox/?status=pending", "")
	inbox = nil
	json.Unmarshal(w.Body.Bytes(), &inbox)
	if len(inbox) != 1 || inbox[0].Title != "本店宛" {
		t.Fatalf("pending inbox = %+v, want 本店宛 only", inbox)
	}
}

func TestCommunicationStatusUpdate(t *testing.T) {
	db, mux, user, cookie := newCommunicationsMux(t)
	hq, _ := seedTwoShops(t, db)
	customer := models.Customer{Name: "鈴木一郎"}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	comm := models.BusinessCommunication{CustomerID: customer.ID, ReceiverShopID: hq.ID, CreatedByID: user.ID, Title: "折返し依頼", Status: models.CommunicationPending}
	if err := db.Create(&comm).Error; err != nil {
		t.Fatalf("create communication: %v", err)
	}

	w := doJSON(t, mux, cookie, http.MethodPut, "/business_communications/"+itoa(comm.ID)+"/status/", `{"status":"done"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: got %d, want 200: %s", w.Code, w.Body.String())
	}
	var after models.BusinessCommunication
	db.First(&after, comm.ID)
	if after.Status != models.CommunicationDone {
		t.Fatalf("status = %q, want done", after.Status)
	}

	w = doJSON(t, mux, cookie, http.MethodPut, "/business_communications/"+itoa(comm.ID)+"/status/", `{"status":"archived"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad status: got %d, want 400", w.Code)
	}
	w = doJSON(t, mux, cookie, http.MethodPut, "/business_communications/999/status/", `{"status":"done"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing: got %d, want 404", w.Code)
	}
}
