package handlers

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"motobms/internal/auth"
	"motobms/internal/httpx"
	"motobms/internal/models"
)

type AuthHandler struct {
	DB *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler { return &AuthHandler{DB: db} }

// Login: POST /login {login_id, password} – sets the session cookie and
// returns the user payload the dashboard keeps in memory.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoginID  string `json:"login_id"`
		Password string `json:"password"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.LoginID == "" || req.Password == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"login_id": "required", "password": "required"})
		return
	}
	var user models.User
	if err := h.DB.Preload("Shop").Where("login_id = ? AND is_active = ?", req.LoginID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_user", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, userPayload(user))
}

// Logout: POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me: GET /auth/user – current user details for form prefill (shop, role).
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var user models.User
	if err := h.DB.Preload("Shop").First(&user, uid).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, userPayload(user))
}

// Refresh: POST /auth/refresh – re-issues the session cookie with a fresh
// expiry so an active dashboard never gets logged out mid-session.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !auth.RefreshSession(w, r) {
		httpx.JSONError(w, http.StatusUnauthorized, "refresh_token_missing", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func userPayload(u models.User) map[string]any {
	var shopName *string
	if u.Shop != nil {
		shopName = &u.Shop.Name
	}
	return map[string]any{
		"id":           u.ID,
		"login_id":     u.LoginID,
		"display_name": u.DisplayName,
		"role":         u.Role,
		"shop_id":      u.ShopID,
		"shop_name":    shopName,
	}
}
