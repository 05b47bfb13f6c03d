package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"motobms/internal/httpx"
	"motobms/internal/models"
	"motobms/internal/textnorm"
)

// CatalogHandler serves the product catalog read-only; entries are managed
// through seeding, not through the API.
type CatalogHandler struct {
	DB *gorm.DB
}

func NewCatalogHandler(db *gorm.DB) *CatalogHandler { return &CatalogHandler{DB: db} }

const productSearchLimit = 20

// Categories: GET /categories/?parent= – no parent (or "null") returns the
// root categories, a numeric parent returns that category's children. An
// unparseable parent yields an empty list, not an error.
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	db := h.DB.Model(&models.Category{}).Order("sort_order, id")
	categories := []models.Category{}
	parent := r.URL.Query().Get("parent")
	switch {
	case parent == "" || parent == "null":
		db = db.Where("parent_id IS NULL")
	default:
		id, err := strconv.ParseUint(parent, 10, 64)
		if err != nil {
			httpx.JSON(w, http.StatusOK, categories)
			return
		}
		db = db.Where("parent_id = ?", id)
	}
	if err := db.Find(&categories).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_categories", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, categories)
}

// Category: GET /categories/{id}/
func (h *CatalogHandler) Category(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var c models.Category
	if err := h.DB.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "category_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_category", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Products: GET /products/?category=&q= – active products only. The keyword
// matches the name width/kana-folded, the same comparison the similarity
// search uses, and a keyword search returns at most 20 entries.
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	db := h.DB.Model(&models.Product{}).Where("is_active = ?", true)
	if cat := r.URL.Query().Get("category"); cat != "" {
		db = db.Where("category_id = ?", cat)
	}
	var products []models.Product
	if err := db.Order("name").Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_products", nil)
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		matched := make([]models.Product, 0, len(products))
		for _, p := range products {
			if textnorm.ContainsFolded(p.Name, q) {
				matched = append(matched, p)
			}
			if len(matched) == productSearchLimit {
				break
			}
		}
		products = matched
	}
	if products == nil {
		products = []models.Product{}
	}
	httpx.JSON(w, http.StatusOK, products)
}
