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

type OrdersHandler struct {
	DB     *gorm.DB
	Orders *services.OrderService
}

func NewOrdersHandler(db *gorm.DB) *OrdersHandler {
	return &OrdersHandler{DB: db, Orders: services.NewOrderService(db)}
}

type orderItemInput struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	TaxType   string  `json:"tax_type"`
	Discount  float64 `json:"discount"`
	SaleType  string  `json:"sale_type"`
	StaffID   *uint   `json:"staff"`
}

type orderInput struct {
	ShopID      *uint                   `json:"shop"`
	OrderDate   *string                 `json:"order_date"` // "2006-01-02"
	CustomerID  *uint                   `json:"customer_id"`
	NewCustomer *services.CustomerInput `json:"new_customer"`
	Items       []orderItemInput        `json:"items"`
}

func (in orderInput) validate(v validation.Violations) {
	if in.CustomerID == nil && in.NewCustomer == nil {
		v["customer"] = "customer_id or new_customer is required"
	}
	if in.CustomerID != nil && in.NewCustomer != nil {
		v["customer"] = "customer_id and new_customer are mutually exclusive"
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

// List: GET /orders/?status=&delivery_status=&page=&page_size=
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	db := h.DB.Model(&models.Order{})
	if status := r.URL.Query().Get("status"); status != "" {
		db = db.Where("status = ?", status)
	}
	if ds := r.URL.Query().Get("delivery_status"); ds != "" {
		db = db.Where("delivery_status = ?", ds)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_orders", nil)
		return
	}
	var orders []models.Order
	if err := db.Preload("Customer").Preload("Shop").
		Order("id DESC").Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&orders).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_orders", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"count":     total,
		"page":      page,
		"page_size": pageSize,
		"results":   orders,
	})
}

// Create: POST /orders/ – either customer_id for an existing customer or
// new_customer to register one inline; the snapshot columns freeze whichever
// was chosen.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in orderInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	in.validate(v)
	if in.NewCustomer != nil {
		in.NewCustomer.Normalize()
		in.NewCustomer.Validate(v)
	}
	if len(v) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	uid, _ := auth.UserIDFromContext(r.Context())
	var created models.Order
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if in.CustomerID != nil {
			if err := tx.First(&customer, *in.CustomerID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return services.ErrCustomerNotFound
				}
				return err
			}
		} else {
			in.NewCustomer.Apply(&customer)
			if customer.FirstShopID == nil {
				customer.FirstShopID = in.ShopID
			}
			if customer.LastShopID == nil {
				customer.LastShopID = in.ShopID
			}
			if err := tx.Create(&customer).Error; err != nil {
				return err
			}
			if err := services.RecordAudit(tx, uid, "customer", customer.ID, "create"); err != nil {
				return err
			}
		}

		now := time.Now()
		orderNo, err := h.Orders.NextOrderNo(tx, now)
		if err != nil {
			return err
		}
		items := make([]models.OrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			taxType := it.TaxType
			if taxType == "" {
				taxType = models.TaxTypeTaxable
			}
			item := models.OrderItem{
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
		subtotal, discountTotal, taxTotal, grandTotal := services.ComputeOrderTotals(items)

		today := now.Truncate(24 * time.Hour)
		orderDate := &today
		if in.OrderDate != nil {
			if t, err := time.Parse("2006-01-02", *in.OrderDate); err == nil {
				orderDate = &t
			}
		}
		created = models.Order{
			OrderNo:       orderNo,
			ShopID:        in.ShopID,
			Status:        models.OrderStatusOrdered,
			OrderDate:     orderDate,
			Subtotal:      subtotal,
			DiscountTotal: discountTotal,
			TaxTotal:      taxTotal,
			GrandTotal:    grandTotal,
			Items:         items,
			CreatedByID:   &uid,
		}
		services.ApplySnapshot(&created, &customer)
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, uid, "order", created.ID, "create")
	})
	if err != nil {
		if errors.Is(err, services.ErrCustomerNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_order", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// Get: GET /orders/{id}/
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var o models.Order
	err := h.DB.Preload("Customer").Preload("Shop").Preload("Items").Preload("CreatedBy").
		First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_order", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

// Update: PUT /orders/{id}/ – issued paperwork stays frozen; only the order
// date and shop can be corrected, and never on a cancelled order.
func (h *OrdersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var o models.Order
	if err := h.DB.First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_order", nil)
		return
	}
	if o.Status == models.OrderStatusCancelled {
		httpx.JSONError(w, http.StatusConflict, "order_already_cancelled", nil)
		return
	}
	var req struct {
		OrderDate *string `json:"order_date"` // "2006-01-02"
		ShopID    *uint   `json:"shop"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.OrderDate != nil {
		t, err := time.Parse("2006-01-02", *req.OrderDate)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"order_date": "invalid_date"})
			return
		}
		o.OrderDate = &t
	}
	if req.ShopID != nil {
		o.ShopID = req.ShopID
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&o).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, uid, "order", o.ID, "update")
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_order", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

// Delete: DELETE /orders/{id}/ – cancelled orders without deliveries only.
func (h *OrdersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var o models.Order
	if err := h.DB.First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_order", nil)
		return
	}
	if o.Status != models.OrderStatusCancelled {
		httpx.JSONError(w, http.StatusConflict, "order_not_cancelled", nil)
		return
	}
	var deliveries int64
	if err := h.DB.Model(&models.Delivery{}).Where("order_id = ?", o.ID).Count(&deliveries).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_order", nil)
		return
	}
	if deliveries > 0 {
		httpx.JSONError(w, http.StatusConflict, "order_has_deliveries", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&o).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, uid, "order", o.ID, "delete")
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_order", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cancel: POST /orders/{id}/cancel/
func (h *OrdersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var o models.Order
	if err := h.DB.First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_order", nil)
		return
	}
	if o.Status == models.OrderStatusCancelled {
		httpx.JSONError(w, http.StatusConflict, "order_already_cancelled", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&o).Update("status", models.OrderStatusCancelled).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, uid, "order", o.ID, "cancel")
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_order", nil)
		return
	}
	o.Status = models.OrderStatusCancelled
	httpx.JSON(w, http.StatusOK, o)
}

// PrepareFromEstimate: POST /orders/prepare-from-estimate/ {estimate_id} –
// returns the order entry prefill: the estimate's party as a customer draft
// plus its lines, payments and totals.
func (h *OrdersHandler) PrepareFromEstimate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EstimateID uint `json:"estimate_id"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil || req.EstimateID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "estimate_id_required", nil)
		return
	}
	pf, err := h.Orders.PrepareFromEstimate(req.EstimateID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEstimateNotFound):
			httpx.JSONError(w, http.StatusNotFound, "estimate_not_found", nil)
		case errors.Is(err, services.ErrEstimateNoParty):
			httpx.JSONError(w, http.StatusConflict, "estimate_has_no_party", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_prepare_order", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, pf)
}

// FromEstimate: POST /orders/from-estimate/ {estimate_id, customer_id?} –
// converts in one transaction. When exact customer matches exist and none was
// selected, responds 200 with need_customer_select and the candidates so the
// operator can choose and retry.
func (h *OrdersHandler) FromEstimate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EstimateID uint  `json:"estimate_id"`
		CustomerID *uint `json:"customer_id"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil || req.EstimateID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "estimate_id_required", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	var shopID *uint
	var user models.User
	if err := h.DB.First(&user, uid).Error; err == nil {
		shopID = user.ShopID
	}
	result, err := h.Orders.ConvertFromEstimate(req.EstimateID, req.CustomerID, uid, shopID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEstimateNotFound):
			httpx.JSONError(w, http.StatusNotFound, "estimate_not_found", nil)
		case errors.Is(err, services.ErrEstimateNoParty):
			httpx.JSONError(w, http.StatusConflict, "estimate_has_no_party", nil)
		case errors.Is(err, services.ErrCustomerNotFound):
			httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_convert_estimate", nil)
		}
		return
	}
	if result.NeedCustomerSelect {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"need_customer_select": true,
			"candidates":           result.Candidates,
		})
		return
	}
	httpx.JSON(w, http.StatusCreated, result.Order)
}
