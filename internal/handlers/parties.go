package handlers

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"motobms/internal/httpx"
	"motobms/internal/models"
	"motobms/internal/services"
	"motobms/internal/validation"
)

// PartiesHandler manages estimate parties directly. Most parties are created
// through POST /estimates/ with new_party, but the entry form also saves a
// party first when the estimate is still being assembled.
type PartiesHandler struct {
	DB *gorm.DB
}

func NewPartiesHandler(db *gorm.DB) *PartiesHandler { return &PartiesHandler{DB: db} }

// List: GET /estimate_parties/?page=&page_size=
func (h *PartiesHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	var total int64
	if err := h.DB.Model(&models.EstimateParty{}).Count(&total).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_parties", nil)
		return
	}
	var parties []models.EstimateParty
	if err := h.DB.Order("id DESC").Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&parties).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_parties", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"count":     total,
		"page":      page,
		"page_size": pageSize,
		"results":   parties,
	})
}

// Create: POST /estimate_parties/
func (h *PartiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CustomerInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	in.Normalize()
	v := validation.Violations{}
	in.Validate(v)
	if len(v) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	if in.SourceCustomerID != nil {
		var exists int64
		if err := h.DB.Model(&models.Customer{}).Where("id = ?", *in.SourceCustomerID).Count(&exists).Error; err != nil || exists == 0 {
			httpx.JSONError(w, http.StatusBadRequest, "source_customer_not_found", nil)
			return
		}
	}
	var party models.EstimateParty
	in.ApplyToParty(&party)
	if err := h.DB.Create(&party).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_party", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, party)
}

// Get: GET /estimate_parties/{id}/
func (h *PartiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var party models.EstimateParty
	if err := h.DB.First(&party, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "party_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_party", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, party)
}

// Delete: DELETE /estimate_parties/{id}/ – refused once an estimate holds
// the party; the snapshot must outlive the paperwork built on it.
func (h *PartiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var referenced int64
	if err := h.DB.Model(&models.Estimate{}).Where("party_id = ?", id).Count(&referenced).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_party", nil)
		return
	}
	if referenced > 0 {
		httpx.JSONError(w, http.StatusConflict, "party_in_use", nil)
		return
	}
	res := h.DB.Delete(&models.EstimateParty{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_party", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "party_not_found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Update: PUT /estimate_parties/{id}/
func (h *PartiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var party models.EstimateParty
	if err := h.DB.First(&party, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "party_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_party", nil)
		return
	}
	var in services.CustomerInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	in.Normalize()
	v := validation.Violations{}
	in.Validate(v)
	if len(v) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	in.ApplyToParty(&party)
	if err := h.DB.Save(&party).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_party", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, party)
}
