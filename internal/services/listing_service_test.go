package services

import (
	"context"
	"testing"

	"github.com/isdelr/carlist-be/internal/apperrors"
	"github.com/isdelr/carlist-be/internal/auth"
	"github.com/isdelr/carlist-be/internal/models"
	"github.com/isdelr/carlist-be/internal/query"
	"github.com/isdelr/carlist-be/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = auth.Identity{UserID: "alice", Email: "alice@example.com"}
	bob   = auth.Identity{UserID: "bob", Email: "bob@example.com"}
)

func sedan() validation.ListingRequest {
	return validation.ListingRequest{
		Title:       "Model 3",
		Description: "Long range, white",
		Tags:        models.Tags{"ev", " sedan ", ""},
		CarType:     "Sedan",
		Company:     "Tesla",
		Dealer:      "Downtown Motors",
		Images:      []string{"https://img.example.com/m3.jpg"},
	}
}

func TestCreateListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	l, err := f.listings.Create(ctx, alice, sedan())
	require.NoError(t, err)
	assert.NotEmpty(t, l.ID)
	assert.Equal(t, "alice", l.UserID)
	assert.Equal(t, models.Tags{"ev", "sedan"}, l.Tags)
	assert.False(t, l.CreatedAt.IsZero())

	got, err := f.listings.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.Title, got.Title)
	assert.Equal(t, l.Images, got.Images)

	assert.Equal(t, 1, f.hub.count("alice"))
	assert.Zero(t, f.hub.count("bob"))
	assert.Equal(t, []string{models.EventListingCreate}, f.bus.subjects)
}

func TestCreateListingValidation(t *testing.T) {
	f := newFixture(t)

	req := sedan()
	req.Title = "   "
	_, err := f.listings.Create(context.Background(), alice, req)
	require.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, "title is required", apperrors.Message(err))

	listings, err := f.listings.Search(context.Background(), alice, query.ListingFilter{})
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestGetByIDNotFound(t *testing.T) {
	_, err := newFixture(t).listings.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSearchIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.listings.Create(ctx, alice, sedan())
	require.NoError(t, err)
	suv := sedan()
	suv.Title, suv.CarType = "Model Y", "SUV"
	_, err = f.listings.Create(ctx, alice, suv)
	require.NoError(t, err)
	_, err = f.listings.Create(ctx, bob, sedan())
	require.NoError(t, err)

	all, err := f.listings.Search(ctx, alice, query.ListingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	sedans, err := f.listings.Search(ctx, alice, query.ListingFilter{OwnerID: "alice", CarType: "sedan"})
	require.NoError(t, err)
	require.Len(t, sedans, 1)
	assert.Equal(t, "Model 3", sedans[0].Title)

	_, err = f.listings.Search(ctx, alice, query.ListingFilter{OwnerID: "bob"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestUpdateListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l, err := f.listings.Create(ctx, alice, sedan())
	require.NoError(t, err)

	req := sedan()
	req.Title = "Model 3 Performance"
	req.Tags = nil
	updated, err := f.listings.Update(ctx, alice, l.ID, req)
	require.NoError(t, err)
	assert.Equal(t, l.ID, updated.ID)
	assert.Equal(t, "alice", updated.UserID)
	assert.Equal(t, l.CreatedAt.UnixMilli(), updated.CreatedAt.UnixMilli())

	got, err := f.listings.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Model 3 Performance", got.Title)
	assert.Empty(t, got.Tags)
}

func TestNonOwnerCannotMutate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l, err := f.listings.Create(ctx, alice, sedan())
	require.NoError(t, err)

	req := sedan()
	req.Title = "stolen"
	_, err = f.listings.Update(ctx, bob, l.ID, req)
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Equal(t, "not authorized to update", apperrors.Message(err))

	err = f.listings.Delete(ctx, bob, l.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Equal(t, "not authorized to delete", apperrors.Message(err))

	// Ownership is checked before the body.
	_, err = f.listings.Update(ctx, bob, l.ID, validation.ListingRequest{})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.listings.Update(ctx, alice, "missing", validation.ListingRequest{})
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := f.listings.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Model 3", got.Title)
	assert.Zero(t, f.hub.count("bob"))
}

func TestDeleteListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l, err := f.listings.Create(ctx, alice, sedan())
	require.NoError(t, err)

	require.NoError(t, f.listings.Delete(ctx, alice, l.ID))

	_, err = f.listings.GetByID(ctx, l.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = f.listings.Delete(ctx, alice, l.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	events, err := f.events.GetRecentEvents(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventListingDelete, events[0].Type)
}

func TestAuthorizeOwnerMissingListing(t *testing.T) {
	_, err := newFixture(t).listings.AuthorizeOwner(context.Background(), alice, "missing", ActionUpdate)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
