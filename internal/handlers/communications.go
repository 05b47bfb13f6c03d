package handlers

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"motobms/internal/auth"
	"motobms/internal/httpx"
	"motobms/internal/models"
	"motobms/internal/validation"
)

// CommunicationsHandler serves shop-to-shop notes about customers: each
// customer's thread, the receiving shop's inbox, and the handled flag.
type CommunicationsHandler struct {
	DB *gorm.DB
}

func NewCommunicationsHandler(db *gorm.DB) *CommunicationsHandler {
	return &CommunicationsHandler{DB: db}
}

// ListForCustomer: GET /customers/{id}/business_communications/
func (h *CommunicationsHandler) ListForCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var exists int64
	if err := h.DB.Model(&models.Customer{}).Where("id = ?", id).Count(&exists).Error; err != nil || exists == 0 {
		httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
		return
	}
	comms := []models.BusinessCommunication{}
	if err := h.DB.Preload("CreatedBy").Where("customer_id = ?", id).
		Order("id DESC").Find(&comms).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_communications", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, comms)
}

// CreateForCustomer: POST /customers/{id}/business_communications/ – the
// sender shop and the author come from the session, never from the body.
func (h *CommunicationsHandler) CreateForCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var exists int64
	if err := h.DB.Model(&models.Customer{}).Where("id = ?", id).Count(&exists).Error; err != nil || exists == 0 {
		httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
		return
	}
	var in struct {
		ReceiverShopID uint   `json:"receiver_shop"`
		Title          string `json:"title"`
		Content        string `json:"content"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("title", in.Title, v)
	if in.ReceiverShopID == 0 {
		v["receiver_shop"] = "required"
	} else {
		var shops int64
		if err := h.DB.Model(&models.Shop{}).Where("id = ?", in.ReceiverShopID).Count(&shops).Error; err != nil || shops == 0 {
			v["receiver_shop"] = "not_found"
		}
	}
	if len(v) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	uid, _ := auth.UserIDFromContext(r.Context())
	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_communication", nil)
		return
	}
	comm := models.BusinessCommunication{
		CustomerID:     uint(id),
		SenderShopID:   user.ShopID,
		ReceiverShopID: in.ReceiverShopID,
		CreatedByID:    uid,
		Title:          in.Title,
		Content:        in.Content,
		Status:         models.CommunicationPending,
	}
	if err := h.DB.Create(&comm).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_communication", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, comm)
}

// Inbox: GET /business_communications/inbox/ – notes addressed to the
// session user's shop. A user without a shop has an empty inbox.
func (h *CommunicationsHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_communications", nil)
		return
	}
	comms := []models.BusinessCommunication{}
	if user.ShopID == nil {
		httpx.JSON(w, http.StatusOK, comms)
		return
	}
	db := h.DB.Preload("CreatedBy").Where("receiver_shop_id = ?", *user.ShopID)
	if status := r.URL.Query().Get("status"); status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Order("id DESC").Find(&comms).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_communications", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, comms)
}

// UpdateStatus: PUT /business_communications/{id}/status/ {status}
func (h *CommunicationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Status != models.CommunicationPending && req.Status != models.CommunicationDone {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_status", nil)
		return
	}
	var comm models.BusinessCommunication
	if err := h.DB.First(&comm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "communication_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_communication", nil)
		return
	}
	if err := h.DB.Model(&comm).Update("status", req.Status).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_communication", nil)
		return
	}
	comm.Status = req.Status
	httpx.JSON(w, http.StatusOK, comm)
}
