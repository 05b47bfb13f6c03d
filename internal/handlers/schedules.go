package handlers

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"motobms/internal/auth"
	"motobms/internal/httpx"
	"motobms/internal/models"
	"motobms/internal/validation"
)

type SchedulesHandler struct {
	DB *gorm.DB
}

func NewSchedulesHandler(db *gorm.DB) *SchedulesHandler { return &SchedulesHandler{DB: db} }

type scheduleInput struct {
	CustomerID  *uint  `json:"customer_id"`
	ShopID      *uint  `json:"shop_id"`
	StaffID     *uint  `json:"staff_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartAt     string `json:"start_at"` // RFC 3339
	EndAt       string `json:"end_at"`
}

// parse validates the input and returns the time fields.
func (in scheduleInput) parse(v validation.Violations) (startAt time.Time, endAt *time.Time) {
	validation.Required("title", in.Title, v)
	startAt, err := time.Parse(time.RFC3339, in.StartAt)
	if err != nil {
		v["start_at"] = "invalid_datetime"
	}
	if in.EndAt != "" {
		t, err := time.Parse(time.RFC3339, in.EndAt)
		if err != nil {
			v["end_at"] = "invalid_datetime"
		} else if !t.After(startAt) {
			v["end_at"] = "must_be_after_start_at"
		} else {
			endAt = &t
		}
	}
	return startAt, endAt
}

// List: GET /schedules/?staff_id=&from=&to=
func (h *SchedulesHandler) List(w http.ResponseWriter, r *http.Request) {
	db := h.DB.Model(&models.Schedule{})
	if staffID := r.URL.Query().Get("staff_id"); staffID != "" {
		db = db.Where("staff_id = ?", staffID)
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			db = db.Where("start_at >= ?", t)
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			db = db.Where("start_at < ?", t.AddDate(0, 0, 1))
		}
	}
	var schedules []models.Schedule
	if err := db.Order("start_at").Find(&schedules).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_schedules", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, schedules)
}

// Create: POST /schedules/
func (h *SchedulesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in scheduleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	h.create(w, r, in)
}

// CreateForCustomer: POST /customers/{id}/schedules/ – the customer comes
// from the path, not the body.
func (h *SchedulesHandler) CreateForCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in scheduleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	cid := uint(id)
	in.CustomerID = &cid
	h.create(w, r, in)
}

func (h *SchedulesHandler) create(w http.ResponseWriter, r *http.Request, in scheduleInput) {
	v := validation.Violations{}
	startAt, endAt := in.parse(v)
	if len(v) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	uid, _ := auth.UserIDFromContext(r.Context())
	staffID := uid
	if in.StaffID != nil {
		staffID = *in.StaffID
	}
	if in.CustomerID != nil {
		var exists int64
		if err := h.DB.Model(&models.Customer{}).Where("id = ?", *in.CustomerID).Count(&exists).Error; err != nil || exists == 0 {
			httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
			return
		}
	}
	s := models.Schedule{
		CustomerID:  in.CustomerID,
		ShopID:      in.ShopID,
		StaffID:     staffID,
		Title:       in.Title,
		Description: in.Description,
		StartAt:     startAt,
		EndAt:       endAt,
	}
	if err := h.DB.Create(&s).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_schedule", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, s)
}

// Get: GET /schedules/{id}/
func (h *SchedulesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var s models.Schedule
	if err := h.DB.First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "schedule_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_schedule", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

// Update: PUT /schedules/{id}/
func (h *SchedulesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var s models.Schedule
	if err := h.DB.First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "schedule_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_schedule", nil)
		return
	}
	var in scheduleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	startAt, endAt := in.parse(v)
	if len(v) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	s.CustomerID = in.CustomerID
	s.ShopID = in.ShopID
	if in.StaffID != nil {
		s.StaffID = *in.StaffID
	}
	s.Title = in.Title
	s.Description = in.Description
	s.StartAt = startAt
	s.EndAt = endAt
	if err := h.DB.Save(&s).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_schedule", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

// Delete: DELETE /schedules/{id}/
func (h *SchedulesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res := h.DB.Delete(&models.Schedule{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_schedule", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "schedule_not_found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
