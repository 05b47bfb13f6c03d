package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"gorm.io/gorm"

	"motobms/internal/models"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return parsed
}

func newSchedulesMux(t *testing.T) (*gorm.DB, *http.ServeMux, *http.Cookie, models.User) {
	t.Helper()
	db := setupHandlerTestDB(t)
	user, cookie := seedSession(t, db)
	h := NewSchedulesHandler(db)
	mux := http.NewServeMux()
	mux.Handle("GET /schedules/", secured(h.List))
	mux.Handle("POST /schedules/", secured(h.Create))
	mux.Handle("GET /schedules/{id}/", secured(h.Get))
	mux.Handle("PUT /schedules/{id}/", secured(h.Update))
	mux.Handle("DELETE /schedules/{id}/", secured(h.Delete))
	mux.Handle("POST /customers/{id}/schedules/", secured(h.CreateForCustomer))
	return db, mux, cookie, user
}

func TestScheduleCreateForCustomer(t *testing.T) {
	db, mux, cookie, user := newSchedulesMux(t)
	c := models.Customer{Name: "Tanaka Taro"}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	body := `{"title":"Shaken reminder","start_at":"2025-07-01T10:00:00+09:00"}`
	w := doJSON(t, mux, cookie, http.MethodPost, "/customers/"+itoa(c.ID)+"/schedules/", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var s models.Schedule
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.CustomerID == nil || *s.CustomerID != c.ID {
		t.Fatalf("customer should come from the path: %+v", s.CustomerID)
	}
	if s.StaffID != user.ID {
		t.Fatalf("staff should default to the session user, got %d", s.StaffID)
	}

	// the customer in the path must exist
	w = doJSON(t, mux, cookie, http.MethodPost, "/customers/9999/schedules/", body)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestScheduleUpdateMovesTimes(t *testing.T) {
	db, mux, cookie, user := newSchedulesMux(t)
	s := models.Schedule{StaffID: user.ID, Title: "Pickup", StartAt: mustTime(t, "2025-07-01T10:00:00+09:00")}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	body := `{"title":"Pickup (moved)","start_at":"2025-07-02T14:00:00+09:00","end_at":"2025-07-02T15:00:00+09:00"}`
	w := doJSON(t, mux, cookie, http.MethodPut, "/schedules/"+itoa(s.ID)+"/", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var updated models.Schedule
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Title != "Pickup (moved)" {
		t.Fatalf("title not updated: %q", updated.Title)
	}
	if updated.EndAt == nil || !updated.EndAt.After(updated.StartAt) {
		t.Fatalf("end time wrong: %+v", updated.EndAt)
	}

	// end before start is rejected
	body = `{"title":"Pickup","start_at":"2025-07-02T14:00:00+09:00","end_at":"2025-07-02T13:00:00+09:00"}`
	w = doJSON(t, mux, cookie, http.MethodPut, "/schedules/"+itoa(s.ID)+"/", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestScheduleGetAndList(t *testing.T) {
	db, mux, cookie, user := newSchedulesMux(t)
	in := models.Schedule{StaffID: user.ID, Title: "Inside", StartAt: mustTime(t, "2025-07-10T09:00:00+09:00")}
	out := models.Schedule{StaffID: user.ID, Title: "Outside", StartAt: mustTime(t, "2025-08-10T09:00:00+09:00")}
	for _, s := range []*models.Schedule{&in, &out} {
		if err := db.Create(s).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	w := doJSON(t, mux, cookie, http.MethodGet, "/schedules/"+itoa(in.ID)+"/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200 got %d", w.Code)
	}

	w = doJSON(t, mux, cookie, http.MethodGet, "/schedules/?from=2025-07-01&to=2025-07-31", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200 got %d", w.Code)
	}
	var listed []models.Schedule
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != in.ID {
		t.Fatalf("range filter wrong: %+v", listed)
	}
}
