package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"motobms/internal/auth"
	"motobms/internal/models"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// unique in-memory DB per test name to avoid leakage via shared cache
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Shop{}, &models.CustomerClass{}, &models.Gender{}, &models.Region{},
		&models.Manufacturer{}, &models.VehicleCategory{}, &models.Color{},
		&models.User{}, &models.Customer{}, &models.CustomerMemo{},
		&models.EstimateParty{}, &models.Estimate{}, &models.EstimateItem{},
		&models.Order{}, &models.OrderItem{},
		&models.Delivery{}, &models.DeliveryItem{},
		&models.Payment{}, &models.Schedule{}, &models.AuditLog{},
		&models.Category{}, &models.Product{}, &models.BusinessCommunication{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seedSession creates an active user and returns it with a session cookie.
func seedSession(t *testing.T, db *gorm.DB) (models.User, *http.Cookie) {
	t.Helper()
	user := models.User{LoginID: "tester", Password: "hash", DisplayName: "Tester", Role: "staff", IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	w := httptest.NewRecorder()
	auth.CreateSession(w, user.ID)
	return user, w.Result().Cookies()[0]
}

// secured mirrors the router's middleware wrapping for a single handler.
func secured(h http.HandlerFunc) http.Handler {
	return auth.Middleware(auth.RequireAuth(h))
}
