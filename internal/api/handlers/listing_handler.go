package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/carlist-be/internal/query"
	"github.com/isdelr/carlist-be/internal/services"
	"github.com/isdelr/carlist-be/internal/validation"
)

// ListingHandler handles HTTP requests for car listings.
type ListingHandler struct {
	service services.ListingServiceProvider
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(service services.ListingServiceProvider) *ListingHandler {
	return &ListingHandler{service: service}
}

// Create handles the creation of a listing owned by the caller.
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	var payload validation.ListingRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		RespondError(w, r, err)
		return
	}

	listing, err := h.service.Create(r.Context(), caller, payload)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, listing)
}

// Search handles filtering the caller's listings.
func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := query.ListingFilter{
		OwnerID: q.Get("userId"),
		Search:  q.Get("search"),
		CarType: q.Get("carType"),
		Company: q.Get("company"),
		Dealer:  q.Get("dealer"),
	}

	listings, err := h.service.Search(r.Context(), caller, filter)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, listings)
}

// Get handles retrieving a single listing.
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, listing)
}

// Update handles replacing a listing's editable fields.
func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	var payload validation.ListingRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		RespondError(w, r, err)
		return
	}

	listing, err := h.service.Update(r.Context(), caller, chi.URLParam(r, "id"), payload)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, listing)
}

// Delete handles removing a listing.
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		RespondError(w, r, err)
		return
	}
	WriteMessage(w, http.StatusOK, "Car deleted successfully")
}
