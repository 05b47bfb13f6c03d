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

type DeliveriesHandler struct {
	DB *gorm.DB
}

func NewDeliveriesHandler(db *gorm.DB) *DeliveriesHandler { return &DeliveriesHandler{DB: db} }

type deliveryInput struct {
	OrderID      uint    `json:"order_id"`
	DeliveryDate *string `json:"delivery_date"` // "2006-01-02"
	Notes        string  `json:"notes"`
	Items        []struct {
		OrderItemID uint    `json:"order_item_id"`
		Quantity    float64 `json:"quantity"`
	} `json:"items"`
}

// List: GET /deliveries/?order_id=
func (h *DeliveriesHandler) List(w http.ResponseWriter, r *http.Request) {
	db := h.DB.Model(&models.Delivery{})
	if orderID := r.URL.Query().Get("order_id"); orderID != "" {
		db = db.Where("order_id = ?", orderID)
	}
	var deliveries []models.Delivery
	if err := db.Preload("Items").Order("id DESC").Find(&deliveries).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_deliveries", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, deliveries)
}

// ListForOrder: GET /orders/{id}/deliveries/
func (h *DeliveriesHandler) ListForOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var exists int64
	if err := h.DB.Model(&models.Order{}).Where("id = ?", id).Count(&exists).Error; err != nil || exists == 0 {
		httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
		return
	}
	var deliveries []models.Delivery
	if err := h.DB.Preload("Items").Where("order_id = ?", id).Order("id").Find(&deliveries).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_deliveries", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, deliveries)
}

// Create: POST /deliveries/ – records delivered quantities per order line,
// then recomputes the order's delivery status inside the same transaction.
func (h *DeliveriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in deliveryInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	if in.OrderID == 0 {
		v["order_id"] = "required"
	}
	if len(in.Items) == 0 {
		v["items"] = "at_least_one_item_required"
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			v["items.quantity"] = "must_be_positive"
		}
	}
	if len(v) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	uid, _ := auth.UserIDFromContext(r.Context())
	var created models.Delivery
	var status string
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, in.OrderID).Error; err != nil {
			return err
		}
		if order.Status == models.OrderStatusCancelled {
			return errOrderCancelled
		}

		deliveryDate := time.Now()
		if in.DeliveryDate != nil {
			if t, err := time.Parse("2006-01-02", *in.DeliveryDate); err == nil {
				deliveryDate = t
			}
		}
		created = models.Delivery{OrderID: order.ID, DeliveryDate: &deliveryDate, Notes: in.Notes}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		for _, it := range in.Items {
			var oi models.OrderItem
			if err := tx.Where("id = ? AND order_id = ?", it.OrderItemID, order.ID).First(&oi).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errOrderItemMismatch
				}
				return err
			}
			di := models.DeliveryItem{DeliveryID: created.ID, OrderItemID: oi.ID, Quantity: it.Quantity}
			if err := tx.Create(&di).Error; err != nil {
				return err
			}
			var delivered float64
			if err := tx.Model(&models.DeliveryItem{}).
				Select("COALESCE(SUM(quantity), 0)").
				Where("order_item_id = ?", oi.ID).
				Scan(&delivered).Error; err != nil {
				return err
			}
			itemStatus := models.ItemDeliveryPending
			if delivered >= oi.Quantity {
				itemStatus = models.ItemDeliveryDelivered
			}
			if err := tx.Model(&oi).Updates(map[string]any{
				"delivery_status": itemStatus,
				"delivery_date":   deliveryDate,
			}).Error; err != nil {
				return err
			}
		}
		var err error
		status, err = services.RecalcOrderDelivery(tx, order.ID)
		if err != nil {
			return err
		}
		return services.RecordAudit(tx, uid, "delivery", created.ID, "create")
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
		case errors.Is(err, errOrderCancelled):
			httpx.JSONError(w, http.StatusConflict, "order_cancelled", nil)
		case errors.Is(err, errOrderItemMismatch):
			httpx.JSONError(w, http.StatusBadRequest, "order_item_mismatch", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_delivery", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"delivery":        created,
		"delivery_status": status,
	})
}

var (
	errOrderCancelled    = errors.New("order cancelled")
	errOrderItemMismatch = errors.New("order item does not belong to order")
)
