package services

import (
	"context"
	"errors"

	"github.com/isdelr/carlist-be/internal/apperrors"
	"github.com/isdelr/carlist-be/internal/auth"
	"github.com/isdelr/carlist-be/internal/models"
	"github.com/isdelr/carlist-be/internal/query"
	"github.com/isdelr/carlist-be/internal/repository"
	"github.com/isdelr/carlist-be/internal/validation"
	"github.com/rs/zerolog/log"
)

// Owner-only actions checked by AuthorizeOwner.
const (
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ListingServiceProvider defines the interface for listing services.
type ListingServiceProvider interface {
	Create(ctx context.Context, owner auth.Identity, req validation.ListingRequest) (models.Listing, error)
	GetByID(ctx context.Context, id string) (models.Listing, error)
	Search(ctx context.Context, caller auth.Identity, filter query.ListingFilter) ([]models.Listing, error)
	Update(ctx context.Context, caller auth.Identity, id string, req validation.ListingRequest) (models.Listing, error)
	Delete(ctx context.Context, caller auth.Identity, id string) error
}

// ListingService provides business logic for car listings.
type ListingService struct {
	listings repository.ListingRepository
	events   EventServiceProvider
}

// NewListingService creates a new ListingService. events may be nil.
func NewListingService(listings repository.ListingRepository, events EventServiceProvider) *ListingService {
	return &ListingService{listings: listings, events: events}
}

// Create stores a new listing owned by the caller.
func (s *ListingService) Create(ctx context.Context, owner auth.Identity, req validation.ListingRequest) (models.Listing, error) {
	req.Normalize()
	if err := validation.Struct(&req); err != nil {
		return models.Listing{}, err
	}

	listing := fromRequest(req)
	listing.UserID = owner.UserID
	if err := s.listings.CreateListing(ctx, &listing); err != nil {
		return models.Listing{}, apperrors.Internal(err)
	}

	log.Info().Str("listing_id", listing.ID).Str("user_id", owner.UserID).Msg("Listing created")
	record(ctx, s.events, owner.UserID, models.EventListingCreate, "Listed "+listing.Title, &listing.ID)
	return listing, nil
}

// GetByID retrieves a single listing.
func (s *ListingService) GetByID(ctx context.Context, id string) (models.Listing, error) {
	listing, err := s.listings.GetListingByID(ctx, id)
	if err != nil {
		return models.Listing{}, translateListingErr(err)
	}
	return *listing, nil
}

// Search returns the caller's listings matching filter, newest first. A filter
// naming another owner is rejected.
func (s *ListingService) Search(ctx context.Context, caller auth.Identity, filter query.ListingFilter) ([]models.Listing, error) {
	switch filter.OwnerID {
	case "":
		filter.OwnerID = caller.UserID
	case caller.UserID:
	default:
		return nil, apperrors.Forbidden("not authorized to view these listings")
	}

	q, err := query.BuildListingQuery(filter)
	if err != nil {
		return nil, err
	}
	listings, err := s.listings.FindListings(ctx, q)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return listings, nil
}

// Update replaces the editable fields of a listing the caller owns.
func (s *ListingService) Update(ctx context.Context, caller auth.Identity, id string, req validation.ListingRequest) (models.Listing, error) {
	existing, err := s.AuthorizeOwner(ctx, caller, id, ActionUpdate)
	if err != nil {
		return models.Listing{}, err
	}

	req.Normalize()
	if err := validation.Struct(&req); err != nil {
		return models.Listing{}, err
	}

	updated := fromRequest(req)
	updated.ID = existing.ID
	updated.UserID = existing.UserID
	updated.CreatedAt = existing.CreatedAt
	if err := s.listings.UpdateListing(ctx, &updated); err != nil {
		return models.Listing{}, translateListingErr(err)
	}

	record(ctx, s.events, caller.UserID, models.EventListingUpdate, "Updated "+updated.Title, &updated.ID)
	return updated, nil
}

// Delete removes a listing the caller owns.
func (s *ListingService) Delete(ctx context.Context, caller auth.Identity, id string) error {
	existing, err := s.AuthorizeOwner(ctx, caller, id, ActionDelete)
	if err != nil {
		return err
	}
	if err := s.listings.DeleteListing(ctx, id); err != nil {
		return translateListingErr(err)
	}

	log.Info().Str("listing_id", id).Str("user_id", caller.UserID).Msg("Listing deleted")
	record(ctx, s.events, caller.UserID, models.EventListingDelete, "Removed "+existing.Title, &existing.ID)
	return nil
}

// AuthorizeOwner loads listing id and checks that caller owns it. It has no
// side effects.
func (s *ListingService) AuthorizeOwner(ctx context.Context, caller auth.Identity, id, action string) (*models.Listing, error) {
	listing, err := s.listings.GetListingByID(ctx, id)
	if err != nil {
		return nil, translateListingErr(err)
	}
	if listing.UserID != caller.UserID {
		log.Warn().Str("listing_id", id).Str("user_id", caller.UserID).Str("action", action).Msg("Rejected listing access by non-owner")
		return nil, apperrors.Forbidden("not authorized to " + action)
	}
	return listing, nil
}

func translateListingErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("Car not found")
	}
	return apperrors.Internal(err)
}

func fromRequest(req validation.ListingRequest) models.Listing {
	tags := models.NormalizeTags(req.Tags)
	images := req.Images
	if images == nil {
		images = []string{}
	}
	return models.Listing{
		Title:       req.Title,
		Description: req.Description,
		Tags:        tags,
		CarType:     req.CarType,
		Company:     req.Company,
		Dealer:      req.Dealer,
		Images:      images,
	}
}
