package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/isdelr/carlist-be/internal/apperrors"
	"github.com/isdelr/carlist-be/internal/auth"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// WriteJSON writes payload as a JSON response with status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Debug().Err(err).Msg("Failed to write response body")
	}
}

// WriteMessage sends a {"message": msg} body.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"message": msg})
}

// RespondError maps err onto its status code. Internal causes are logged and
// replaced by a generic message.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	WriteMessage(w, status, apperrors.Message(err))
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperrors.Validation("Request body too large")
		case errors.Is(err, io.EOF):
			return apperrors.Validation("Request body is required")
		default:
			return apperrors.Validation("Invalid request body")
		}
	}
	return nil
}

// identity returns the caller resolved by the auth middleware.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		log.Error().Str("path", r.URL.Path).Msg("Could not retrieve identity from context")
		WriteMessage(w, http.StatusUnauthorized, "Missing auth token")
	}
	return id, ok
}
