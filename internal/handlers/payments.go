package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"motobms/internal/httpx"
	"motobms/internal/models"
	"motobms/internal/validation"
)

type PaymentsHandler struct {
	DB *gorm.DB
}

func NewPaymentsHandler(db *gorm.DB) *PaymentsHandler { return &PaymentsHandler{DB: db} }

// List: GET /payments/?owner_type=&owner_id=
func (h *PaymentsHandler) List(w http.ResponseWriter, r *http.Request) {
	db := h.DB.Model(&models.Payment{})
	if ot := r.URL.Query().Get("owner_type"); ot != "" {
		db = db.Where("owner_type = ?", ot)
	}
	if oid := r.URL.Query().Get("owner_id"); oid != "" {
		db = db.Where("owner_id = ?", oid)
	}
	var payments []models.Payment
	if err := db.Order("id").Find(&payments).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_payments", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}

// Create: POST /payments/
func (h *PaymentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p models.Payment
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.OneOf("owner_type", p.OwnerType, []string{models.PaymentOwnerEstimate, models.PaymentOwnerOrder}, v)
	if p.OwnerID == 0 {
		v["owner_id"] = "required"
	}
	if p.PaymentMethod == "" {
		p.PaymentMethod = models.PaymentMethodCash
	}
	validation.OneOf("payment_method", p.PaymentMethod,
		[]string{models.PaymentMethodCash, models.PaymentMethodCredit, models.PaymentMethodInvoice}, v)
	if p.PaymentMethod == models.PaymentMethodCredit && p.CreditCompany == "" {
		v["credit_company"] = "required_for_credit"
	}
	if len(v) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var exists int64
	owner := h.DB.Model(&models.Estimate{})
	if p.OwnerType == models.PaymentOwnerOrder {
		owner = h.DB.Model(&models.Order{})
	}
	if err := owner.Where("id = ?", p.OwnerID).Count(&exists).Error; err != nil || exists == 0 {
		httpx.JSONError(w, http.StatusNotFound, "owner_not_found", nil)
		return
	}

	p.ID = 0
	if err := h.DB.Create(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_payment", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

// Delete: DELETE /payments/{id}/
func (h *PaymentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res := h.DB.Delete(&models.Payment{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_payment", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "payment_not_found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
