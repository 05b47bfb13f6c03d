package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"motobms/internal/models"
)

func TestLoginFlow(t *testing.T) {
	db := setupHandlerTestDB(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.DefaultCost)
	user := models.User{LoginID: "staff1", Password: string(hash), DisplayName: "Staff One", IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	h := NewAuthHandler(db)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", h.Login)
	mux.Handle("GET /auth/user", secured(h.Me))

	// wrong password
	w := doJSON(t, mux, nil, http.MethodPost, "/login", `{"login_id":"staff1","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401 got %d", w.Code)
	}

	// unknown user gets the same error, not a different one
	w = doJSON(t, mux, nil, http.MethodPost, "/login", `{"login_id":"ghost","password":"secret"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: expected 401 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid_credentials") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	// success sets the session cookie
	w = doJSON(t, mux, nil, http.MethodPost, "/login", `{"login_id":"staff1","password":"secret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != "session" {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}

	// the cookie authenticates /auth/user
	req := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("auth/user: expected 200 got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["login_id"] != "staff1" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	db := setupHandlerTestDB(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.DefaultCost)
	user := models.User{LoginID: "gone", Password: string(hash), IsActive: false}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	h := NewAuthHandler(db)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", h.Login)

	w := doJSON(t, mux, nil, http.MethodPost, "/login", `{"login_id":"gone","password":"secret"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("inactive user: expected 401 got %d", w.Code)
	}
}
