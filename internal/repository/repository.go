// Package repository defines the persistence boundary for users, listings and events.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/isdelr/carlist-be/internal/models"
	"github.com/isdelr/carlist-be/internal/query"
)

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a unique key (user email) is already taken.
	ErrDuplicate = errors.New("repository: duplicate key")
)

// UserRepository persists user accounts. Create must fail with ErrDuplicate
// when the email is already registered.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// ListingRepository persists car listings.
type ListingRepository interface {
	CreateListing(ctx context.Context, listing *models.Listing) error
	GetListingByID(ctx context.Context, id string) (*models.Listing, error)
	FindListings(ctx context.Context, q query.ListingQuery) ([]models.Listing, error)
	UpdateListing(ctx context.Context, listing *models.Listing) error
	DeleteListing(ctx context.Context, id string) error
}

// EventRepository persists the activity log.
type EventRepository interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	ListEventsByUser(ctx context.Context, userID string, limit int) ([]models.Event, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store bundles the repositories of one backend.
type Store interface {
	Users() UserRepository
	Listings() ListingRepository
	Events() EventRepository
	Ping(ctx context.Context) error
	Close() error
}
