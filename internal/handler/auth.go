package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/roomservice/api/internal/auth"
	"github.com/roomservice/api/internal/enum"
	"github.com/roomservice/api/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler handles admin login and logout. There is a single admin
// identity guarded by one password.
type AuthHandler struct {
	passwordHash []byte
	jwtSecret    string
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. password may be plain text or
// an existing bcrypt hash.
func NewAuthHandler(password, jwtSecret string, secureCookie bool) (*AuthHandler, error) {
	if password == "" {
		return nil, fmt.Errorf("admin password is required")
	}
	hash := []byte(password)
	if _, err := bcrypt.Cost(hash); err != nil {
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
	}
	return &AuthHandler{passwordHash: hash, jwtSecret: jwtSecret, secureCookie: secureCookie}, nil
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/admin/login", h.Login)
	r.Post("/admin/logout", h.Logout)
}

type loginRequest struct {
	Password string `json:"password"`
}

type tokenResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Login checks the admin password and issues an access token, both in the
// body and as the admin_token cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Password = r.PostForm.Get("password")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Password) == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, "admin", enum.RoleAdmin)
	if err != nil {
		log.Printf("ERROR: generate admin token: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.AccessTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, tokenResponse{
		Status:      enum.ResultSuccess,
		Message:     "Logged in",
		AccessToken: token,
		ExpiresIn:   int(auth.AccessTokenTTL.Seconds()),
	})
}

// Logout clears the admin_token cookie. Bearer tokens simply expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  enum.ResultSuccess,
		"message": "Logged out",
	})
}
