package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"motobms/internal/auth"
	"motobms/internal/httpx"
	"motobms/internal/models"
	"motobms/internal/services"
	"motobms/internal/textnorm"
	"motobms/internal/validation"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type CustomersHandler struct {
	DB         *gorm.DB
	Similarity *services.SimilarityService
}

func NewCustomersHandler(db *gorm.DB) *CustomersHandler {
	return &CustomersHandler{DB: db, Similarity: services.NewSimilarityService(db)}
}

// List: GET /customers/?search=&page=&page_size=
// search matches the customer's text columns plus memo bodies.
func (h *CustomersHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	db := h.DB.Model(&models.Customer{})
	if search := r.URL.Query().Get("search"); search != "" {
		phone := textnorm.NormalizePhone(search)
		like := "%" + search + "%"
		db = db.Where(
			"name LIKE ? OR kana LIKE ? OR email LIKE ? OR phone LIKE ? OR mobile_phone LIKE ?"+
				" OR address LIKE ? OR postal_code LIKE ? OR company LIKE ?"+
				" OR id IN (?)",
			like, like, "%"+textnorm.NormalizeEmail(search)+"%", "%"+phone+"%", "%"+phone+"%",
			like, "%"+textnorm.NormalizePostal(search)+"%", like,
			h.DB.Model(&models.CustomerMemo{}).Select("customer_id").Where("body LIKE ?", like),
		)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_customers", nil)
		return
	}
	var customers []models.Customer
	if err := db.Preload("CustomerClass").Preload("Staff").Preload("LastShop").
		Order("id DESC").Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&customers).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_customers", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"count":     total,
		"page":      page,
		"page_size": pageSize,
		"results":   customers,
	})
}

// Create: POST /customers/
func (h *CustomersHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	uid, _ := auth.UserIDFromContext(r.Context())
	var created models.Customer
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		in.Apply(&created)
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, uid, "customer", created.ID, "create")
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_customer", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// Get: GET /customers/{id}/
func (h *CustomersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var c models.Customer
	err := h.DB.Preload("CustomerClass").Preload("Staff").Preload("Region").
		Preload("Gender").Preload("FirstShop").Preload("LastShop").
		First(&c, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_customer", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Update: PUT /customers/{id}/
func (h *CustomersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var c models.Customer
	if err := h.DB.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_customer", nil)
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
	uid, _ := auth.UserIDFromContext(r.Context())
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		in.Apply(&c)
		if err := tx.Save(&c).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, uid, "customer", c.ID, "update")
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_customer", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Delete: DELETE /customers/{id}/
func (h *CustomersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Customer{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return services.RecordAudit(tx, uid, "customer", uint(id), "delete")
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_customer", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Similar: POST /customers/similar/ – scores existing customers against the
// submitted identity fields. Rejects a query with no usable identity field
// so a blank form never matches the whole table.
func (h *CustomersHandler) Similar(w http.ResponseWriter, r *http.Request) {
	var q services.IdentityQuery
	if err := httpx.DecodeJSON(r, &q); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if !q.Searchable() {
		httpx.JSONError(w, http.StatusBadRequest, "search_fields_required",
			map[string]string{"detail": "at least one of name, kana, phone, mobile_phone or email is required"})
		return
	}
	result, err := h.Similarity.FindSimilar(q)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "similar_search_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// ListMemos: GET /customers/{id}/memos/
func (h *CustomersHandler) ListMemos(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var memos []models.CustomerMemo
	if err := h.DB.Where("customer_id = ?", id).Order("id DESC").Find(&memos).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_memos", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, memos)
}

// CreateMemo: POST /customers/{id}/memos/
func (h *CustomersHandler) CreateMemo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("body", req.Body, v)
	if len(v) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var exists int64
	if err := h.DB.Model(&models.Customer{}).Where("id = ?", id).Count(&exists).Error; err != nil || exists == 0 {
		httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
		return
	}
	memo := models.CustomerMemo{CustomerID: uint(id), Body: req.Body}
	if err := h.DB.Create(&memo).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_memo", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, memo)
}

// DeleteMemo: DELETE /customers/{id}/memos/{memo_id}/
func (h *CustomersHandler) DeleteMemo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	memoID, err := strconv.ParseUint(r.PathValue("memo_id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Where("customer_id = ?", id).Delete(&models.CustomerMemo{}, memoID)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_memo", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "memo_not_found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSchedules: GET /customers/{id}/schedules/
func (h *CustomersHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var schedules []models.Schedule
	if err := h.DB.Where("customer_id = ?", id).Order("start_at").Find(&schedules).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_schedules", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, schedules)
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return id, true
}

func pagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
