package handlers

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"motobms/internal/auth"
	"motobms/internal/httpx"
	"motobms/internal/models"
)

// AuditLogsHandler exposes the write-path audit trail read-only.
type AuditLogsHandler struct {
	DB *gorm.DB
}

func NewAuditLogsHandler(db *gorm.DB) *AuditLogsHandler { return &AuditLogsHandler{DB: db} }

// List: GET /audit_logs/?action=&user_id=&entity_type=&entity_id=&from=&to=
// Admin only; staff get 403.
func (h *AuditLogsHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil || user.Role != "admin" {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	page, pageSize := pagination(r)
	db := h.DB.Model(&models.AuditLog{})
	q := r.URL.Query()
	if action := q.Get("action"); action != "" {
		db = db.Where("action = ?", action)
	}
	if userID := q.Get("user_id"); userID != "" {
		db = db.Where("user_id = ?", userID)
	}
	if entityType := q.Get("entity_type"); entityType != "" {
		db = db.Where("entity_type = ?", entityType)
	}
	if entityID := q.Get("entity_id"); entityID != "" {
		db = db.Where("entity_id = ?", entityID)
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			db = db.Where("created_at >= ?", t)
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			db = db.Where("created_at < ?", t.AddDate(0, 0, 1))
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_audit_logs", nil)
		return
	}
	var logs []models.AuditLog
	if err := db.Order("id DESC").Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&logs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_audit_logs", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"count":     total,
		"page":      page,
		"page_size": pageSize,
		"results":   logs,
	})
}
