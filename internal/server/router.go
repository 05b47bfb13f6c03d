package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"motobms/internal/auth"
	"motobms/internal/handlers"
	"motobms/internal/httpx"
	"motobms/internal/models"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// Configure a user verifier so RequireAuth can ensure the user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ? AND is_active = ?", uid, true).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	secured := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(h))
	}

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth
	ah := handlers.NewAuthHandler(db)
	mux.HandleFunc("POST /login", ah.Login)
	mux.HandleFunc("POST /logout", ah.Logout)
	mux.Handle("GET /auth/user", secured(ah.Me))
	mux.HandleFunc("POST /auth/refresh", ah.Refresh)

	// Masters
	mh := handlers.NewMastersHandler(db)
	mux.Handle("GET /masters/customer_classes", secured(mh.CustomerClasses))
	mux.Handle("GET /masters/genders", secured(mh.Genders))
	mux.Handle("GET /masters/regions", secured(mh.Regions))
	mux.Handle("GET /masters/shops", secured(mh.Shops))
	mux.Handle("GET /masters/colors", secured(mh.Colors))
	mux.Handle("GET /masters/manufacturers", secured(mh.Manufacturers))
	mux.Handle("GET /masters/vehiclecategories", secured(mh.VehicleCategories))
	mux.Handle("GET /masters/staffs", secured(mh.Staffs))

	// Customers
	ch := handlers.NewCustomersHandler(db)
	mux.Handle("GET /customers/", secured(ch.List))
	mux.Handle("POST /customers/", secured(ch.Create))
	// {$} keeps the literal action routes exact matches; as prefix patterns
	// they would conflict with the {id} subtrees below.
	mux.Handle("POST /customers/similar/{$}", secured(ch.Similar))
	mux.Handle("GET /customers/{id}/", secured(ch.Get))
	mux.Handle("PUT /customers/{id}/", secured(ch.Update))
	mux.Handle("DELETE /customers/{id}/", secured(ch.Delete))
	mux.Handle("GET /customers/{id}/memos/", secured(ch.ListMemos))
	mux.Handle("POST /customers/{id}/memos/", secured(ch.CreateMemo))
	mux.Handle("DELETE /customers/{id}/memos/{memo_id}/", secured(ch.DeleteMemo))
	mux.Handle("GET /customers/{id}/schedules/", secured(ch.ListSchedules))

	// Estimates and their parties
	eh := handlers.NewEstimatesHandler(db)
	mux.Handle("GET /estimates/", secured(eh.List))
	mux.Handle("POST /estimates/", secured(eh.Create))
	mux.Handle("GET /estimates/{id}/", secured(eh.Get))
	mux.Handle("PUT /estimates/{id}/", secured(eh.Update))
	mux.Handle("PUT /estimates/{id}/status/", secured(eh.UpdateStatus))
	mux.Handle("DELETE /estimates/{id}/", secured(eh.Delete))

	pph := handlers.NewPartiesHandler(db)
	mux.Handle("GET /estimate_parties/", secured(pph.List))
	mux.Handle("POST /estimate_parties/", secured(pph.Create))
	mux.Handle("GET /estimate_parties/{id}/", secured(pph.Get))
	mux.Handle("PUT /estimate_parties/{id}/", secured(pph.Update))
	mux.Handle("DELETE /estimate_parties/{id}/", secured(pph.Delete))

	// Orders
	oh := handlers.NewOrdersHandler(db)
	mux.Handle("GET /orders/", secured(oh.List))
	mux.Handle("POST /orders/", secured(oh.Create))
	mux.Handle("POST /orders/prepare-from-estimate/{$}", secured(oh.PrepareFromEstimate))
	mux.Handle("POST /orders/from-estimate/{$}", secured(oh.FromEstimate))
	mux.Handle("GET /orders/{id}/", secured(oh.Get))
	mux.Handle("PUT /orders/{id}/", secured(oh.Update))
	mux.Handle("DELETE /orders/{id}/", secured(oh.Delete))
	mux.Handle("POST /orders/{id}/cancel/", secured(oh.Cancel))

	// Deliveries
	dh := handlers.NewDeliveriesHandler(db)
	mux.Handle("GET /deliveries/", secured(dh.List))
	mux.Handle("POST /deliveries/", secured(dh.Create))
	mux.Handle("GET /orders/{id}/deliveries/", secured(dh.ListForOrder))

	// Payments
	payh := handlers.NewPaymentsHandler(db)
	mux.Handle("GET /payments/", secured(payh.List))
	mux.Handle("POST /payments/", secured(payh.Create))
	mux.Handle("DELETE /payments/{id}/", secured(payh.Delete))

	// Schedules
	sh := handlers.NewSchedulesHandler(db)
	mux.Handle("GET /schedules/", secured(sh.List))
	mux.Handle("POST /schedules/", secured(sh.Create))
	mux.Handle("GET /schedules/{id}/", secured(sh.Get))
	mux.Handle("PUT /schedules/{id}/", secured(sh.Update))
	mux.Handle("DELETE /schedules/{id}/", secured(sh.Delete))
	mux.Handle("POST /customers/{id}/schedules/", secured(sh.CreateForCustomer))

	// Catalog
	cath := handlers.NewCatalogHandler(db)
	mux.Handle("GET /categories/", secured(cath.Categories))
	mux.Handle("GET /categories/{id}/", secured(cath.Category))
	mux.Handle("GET /products/", secured(cath.Products))

	// Business communications
	bch := handlers.NewCommunicationsHandler(db)
	mux.Handle("GET /customers/{id}/business_communications/", secured(bch.ListForCustomer))
	mux.Handle("POST /customers/{id}/business_communications/", secured(bch.CreateForCustomer))
	mux.Handle("GET /business_communications/inbox/", secured(bch.Inbox))
	mux.Handle("PUT /business_communications/{id}/status/", secured(bch.UpdateStatus))

	// Audit trail
	alh := handlers.NewAuditLogsHandler(db)
	mux.Handle("GET /audit_logs/", secured(alh.List))

	// Analytics
	anh := handlers.NewAnalyticsHandler(db)
	mux.Handle("GET /analytics/sales/summary", secured(anh.Summary))
	mux.Handle("GET /analytics/sales/daily", secured(anh.Daily))
	mux.Handle("GET /analytics/sales/by_staff", secured(anh.ByStaff))

	return withRecover(withLogging(mux))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
