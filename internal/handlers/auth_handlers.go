package handlers

import (
	"net/http"
	"strings"
	"time"

	"roomchat/internal/auth"
	"roomchat/internal/models"
	"roomchat/pkg/logger"
)

type AuthHandlers struct {
	authService  *auth.Service
	secureCookie bool
}

func NewAuthHandlers(authService *auth.Service, publicURL string) *AuthHandlers {
	return &AuthHandlers{
		authService:  authService,
		secureCookie: strings.HasPrefix(publicURL, "https://"),
	}
}

func (h *AuthHandlers) setSession(w http.ResponseWriter, resp *models.LoginResponse) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    resp.Token,
		Path:     "/",
		Expires:  resp.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	response, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		logger.Warn("Registration error: %v", err)
		writeError(w, r, err)
		return
	}

	h.setSession(w, response)
	writeJSON(w, http.StatusCreated, response)
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	response, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		logger.Warn("Login error: %v", err)
		writeError(w, r, err)
		return
	}

	h.setSession(w, response)
	writeJSON(w, http.StatusOK, response)
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.SignOut(r.Context(), tokenFromRequest(r)); err != nil {
		writeError(w, r, err)
		return
	}
	h.clearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}
