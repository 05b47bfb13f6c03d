package handlers

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"motobms/internal/auth"
	"motobms/internal/httpx"
	"motobms/internal/models"
	"motobms/internal/services"
	"motobms/internal/validation"
)

type EstimatesHandler struct {
	DB *gorm.DB
}

func NewEstimatesHandler(db *gorm.DB) *EstimatesHandler { return &EstimatesHandler{DB: db} }

type estimateItemInput struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	TaxType   string  `json:"tax_type"`
	Discount  float64 `json:"discount"`
	SaleType  string  `json:"sale_type"`
	StaffID   *uint   `json:"staff"`
}

type estimateInput struct {
	ShopID       *uint                   `json:"shop"`
	EstimateDate *string                 `json:"estimate_date"` // "2006-01-02"
	PartyID      *uint                   `json:"party_id"`
	NewParty     *services.CustomerInput `json:"new_party"`
	Items        []estimateItemInput     `json:"items"`
}

func (in estimateInput) validate(v validation.Violations) {
	if in.PartyID == nil && in.NewParty == nil {
		v["party"] = "party_id or new_party is required"
	}
	if in.PartyID != nil && in.NewParty != nil {
		v["party"] = "party_id and new_party are mutually exclusive"
	}
	if len(in.Items) == 0 {
		v["items"] = "at_least_one_item_required"
	}
	for _, it := range in.Items {
		if it.Name == "" {
			v["items.name"] = "required"
		}
		if it.Quantity <= 0 {
			v["items.quantity"] = "must_be_positive"
		}
		if it.TaxType != "" && it.TaxType != models.TaxTypeTaxable && it.TaxType != models.TaxTypeNonTaxable {
			v["items.tax_type"] = "invalid"
		}
	}
}

// List: GET /estimates/?status=&page=&page_size=
func (h *EstimatesHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	db := h.DB.Model(&models.Estimate{})
	if status := r.URL.Query().Get("status"); status != "" {
		db = db.Where("status = ?", status)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_estimates", nil)
		return
	}
	var estimates []models.Estimate
	if err := db.Preload("Party").Preload("Shop").
		Order("id DESC").Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&estimates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_estimates", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"count":     total,
		"page":      page,
		"page_size": pageSize,
		"results":   estimates,
	})
}

// Create: POST /estimates/ – accepts either an existing party_id or a
// new_party payload that becomes a fresh snapshot row.
func (h *EstimatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in estimateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	in.validate(v)
	if in.NewParty != nil {
		in.NewParty.Normalize()
		in.NewParty.Validate(v)
	}
	if len(v) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	uid, _ := auth.UserIDFromContext(r.Context())
	var created models.Estimate
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		partyID := in.PartyID
		if in.NewParty != nil {
			var party models.EstimateParty
			in.NewParty.ApplyToParty(&party)
			if err := tx.Create(&party).Error; err != nil {
				return err
			}
			partyID = &party.ID
		} else {
			var exists int64
			if err := tx.Model(&models.EstimateParty{}).Where("id = ?", *partyID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return gorm.ErrRecordNotFound
			}
		}

		now := time.Now()
		no, err := services.NextEstimateNo(tx, now)
		if err != nil {
			return err
		}
		items := make([]models.EstimateItem, 0, len(in.Items))
		for _, it := range in.Items {
			taxType := it.TaxType
			if taxType == "" {
				taxType = models.TaxTypeTaxable
			}
			item := models.EstimateItem{
				Name:      it.Name,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
				TaxType:   taxType,
				Discount:  it.Discount,
				SaleType:  it.SaleType,
				StaffID:   it.StaffID,
			}
			item.Subtotal = item.LineSubtotal()
			items = append(items, item)
		}
		subtotal, discountTotal, taxTotal, grandTotal := services.ComputeEstimateTotals(items)

		estimateDate := &now
		if in.EstimateDate != nil {
			if t, err := time.Parse("2006-01-02", *in.EstimateDate); err == nil {
				estimateDate = &t
			}
		}
		created = models.Estimate{
			EstimateNo:    no,
			ShopID:        in.ShopID,
			PartyID:       partyID,
			Status:        models.EstimateStatusDraft,
			EstimateDate:  estimateDate,
			Subtotal:      subtotal,
			DiscountTotal: discountTotal,
			TaxTotal:      taxTotal,
			GrandTotal:    grandTotal,
			Items:         items,
			CreatedByID:   &uid,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, uid, "estimate", created.ID, "create")
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "party_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_estimate", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// Get: GET /estimates/{id}/
func (h *EstimatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var e models.Estimate
	err := h.DB.Preload("Party").Preload("Shop").Preload("Items").Preload("CreatedBy").
		First(&e, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "estimate_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_estimate", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

// Update: PUT /estimates/{id}/ – draft estimates only: lines are replaced
// wholesale and totals recomputed. Issued or ordered paperwork stays frozen.
func (h *EstimatesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var e models.Estimate
	if err := h.DB.First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "estimate_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_estimate", nil)
		return
	}
	if e.Status != models.EstimateStatusDraft {
		httpx.JSONError(w, http.StatusConflict, "estimate_not_editable", nil)
		return
	}
	var in estimateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	in.validate(v)
	if in.NewParty != nil {
		in.NewParty.Normalize()
		in.NewParty.Validate(v)
	}
	if len(v) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	uid, _ := auth.UserIDFromContext(r.Context())
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		partyID := in.PartyID
		if in.NewParty != nil {
			var party models.EstimateParty
			in.NewParty.ApplyToParty(&party)
			if err := tx.Create(&party).Error; err != nil {
				return err
			}
			partyID = &party.ID
		} else {
			var exists int64
			if err := tx.Model(&models.EstimateParty{}).Where("id = ?", *partyID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return gorm.ErrRecordNotFound
			}
		}

		if err := tx.Where("estimate_id = ?", e.ID).Delete(&models.EstimateItem{}).Error; err != nil {
			return err
		}
		items := make([]models.EstimateItem, 0, len(in.Items))
		for _, it := range in.Items {
			taxType := it.TaxType
			if taxType == "" {
				taxType = models.TaxTypeTaxable
			}
			item := models.EstimateItem{
				EstimateID: e.ID,
				Name:       it.Name,
				Quantity:   it.Quantity,
				UnitPrice:  it.UnitPrice,
				TaxType:    taxType,
				Discount:   it.Discount,
				SaleType:   it.SaleType,
				StaffID:    it.StaffID,
			}
			item.Subtotal = item.LineSubtotal()
			items = append(items, item)
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		subtotal, discountTotal, taxTotal, grandTotal := services.ComputeEstimateTotals(items)

		e.PartyID = partyID
		e.ShopID = in.ShopID
		if in.EstimateDate != nil {
			if t, perr := time.Parse("2006-01-02", *in.EstimateDate); perr == nil {
				e.EstimateDate = &t
			}
		}
		e.Subtotal = subtotal
		e.DiscountTotal = discountTotal
		e.TaxTotal = taxTotal
		e.GrandTotal = grandTotal
		if err := tx.Omit("Items").Save(&e).Error; err != nil {
			return err
		}
		e.Items = items
		return services.RecordAudit(tx, uid, "estimate", e.ID, "update")
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "party_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_estimate", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

// UpdateStatus: PUT /estimates/{id}/status/ {status} – draft→issued only;
// the ordered status is set by conversion, never by hand.
func (h *EstimatesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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
	if req.Status != models.EstimateStatusIssued {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_status", nil)
		return
	}
	var e models.Estimate
	if err := h.DB.First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "estimate_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_estimate", nil)
		return
	}
	if e.Status == models.EstimateStatusOrdered {
		httpx.JSONError(w, http.StatusConflict, "estimate_already_ordered", nil)
		return
	}
	if err := h.DB.Model(&e).Update("status", req.Status).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_estimate", nil)
		return
	}
	e.Status = req.Status
	httpx.JSON(w, http.StatusOK, e)
}

// Delete: DELETE /estimates/{id}/ – draft estimates only.
func (h *EstimatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var e models.Estimate
	if err := h.DB.First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "estimate_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_estimate", nil)
		return
	}
	if e.Status == models.EstimateStatusOrdered {
		httpx.JSONError(w, http.StatusConflict, "estimate_already_ordered", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("estimate_id = ?", e.ID).Delete(&models.EstimateItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&e).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_estimate", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
