package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"motobms/internal/httpx"
	"motobms/internal/models"
)

// MastersHandler serves the reference tables used by customer and
// estimate entry forms. All lists are small and returned whole.
type MastersHandler struct {
	DB *gorm.DB
}

func NewMastersHandler(db *gorm.DB) *MastersHandler { return &MastersHandler{DB: db} }

func listMaster[T any](db *gorm.DB, w http.ResponseWriter) {
	var rows []T
	if err := db.Order("id").Find(&rows).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_masters", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *MastersHandler) CustomerClasses(w http.ResponseWriter, r *http.Request) {
	listMaster[models.CustomerClass](h.DB, w)
}

func (h *MastersHandler) Genders(w http.ResponseWriter, r *http.Request) {
	listMaster[models.Gender](h.DB, w)
}

func (h *MastersHandler) Regions(w http.ResponseWriter, r *http.Request) {
	listMaster[models.Region](h.DB, w)
}

func (h *MastersHandler) Shops(w http.ResponseWriter, r *http.Request) {
	listMaster[models.Shop](h.DB, w)
}

func (h *MastersHandler) Colors(w http.ResponseWriter, r *http.Request) {
	listMaster[models.Color](h.DB, w)
}

func (h *MastersHandler) Manufacturers(w http.ResponseWriter, r *http.Request) {
	listMaster[models.Manufacturer](h.DB, w)
}

func (h *MastersHandler) VehicleCategories(w http.ResponseWriter, r *http.Request) {
	listMaster[models.VehicleCategory](h.DB, w)
}

// Staffs lists active users for staff assignment dropdowns.
func (h *MastersHandler) Staffs(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.DB.Where("is_active = ?", true).Order("id").Find(&users).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_masters", nil)
		return
	}
	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{
			"id":           u.ID,
			"display_name": u.DisplayName,
			"shop_id":      u.ShopID,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}
