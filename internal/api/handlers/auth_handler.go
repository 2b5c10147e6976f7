package handlers

import (
	"net/http"

	"github.com/isdelr/carlist-be/internal/services"
	"github.com/isdelr/carlist-be/internal/validation"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles HTTP requests for registration, login and the caller's profile.
type AuthHandler struct {
	service services.AuthServiceProvider
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload validation.RegisterRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		RespondError(w, r, err)
		return
	}

	resp, err := h.service.Register(r.Context(), payload)
	if err != nil {
		log.Debug().Err(err).Str("email", payload.Email).Msg("Registration rejected")
		RespondError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Login handles user authentication and token issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload validation.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		RespondError(w, r, err)
		return
	}

	resp, err := h.service.Login(r.Context(), payload)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetMe returns the authenticated user's profile.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUserByID(r.Context(), caller.UserID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", caller.UserID).Msg("User from token not found")
		RespondError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}
