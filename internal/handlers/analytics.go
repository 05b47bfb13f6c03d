package handlers

import (
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"motobms/internal/httpx"
	"motobms/internal/services"
)

type AnalyticsHandler struct {
	Analytics *services.AnalyticsService
}

func NewAnalyticsHandler(db *gorm.DB) *AnalyticsHandler {
	return &AnalyticsHandler{Analytics: services.NewAnalyticsService(db)}
}

func queryShopID(r *http.Request) *uint {
	s := r.URL.Query().Get("shop_id")
	if s == "" {
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil
	}
	id := uint(n)
	return &id
}

func queryDate(r *http.Request, key string) *time.Time {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// Summary: GET /analytics/sales/summary?shop_id=
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Analytics.Summary(queryShopID(r))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_analytics", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

// Daily: GET /analytics/sales/daily?shop_id=&from=&to=
func (h *AnalyticsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Analytics.Daily(queryShopID(r), queryDate(r, "from"), queryDate(r, "to"))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_analytics", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

// ByStaff: GET /analytics/sales/by_staff?shop_id=
func (h *AnalyticsHandler) ByStaff(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Analytics.ByStaff(queryShopID(r))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_analytics", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}
