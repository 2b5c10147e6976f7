package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/isdelr/carlist-be/internal/apperrors"
	"github.com/isdelr/carlist-be/internal/auth"
	"github.com/isdelr/carlist-be/internal/models"
	"github.com/isdelr/carlist-be/internal/repository"
	"github.com/isdelr/carlist-be/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reg, err := f.auth.Register(ctx, validation.RegisterRequest{Email: " Ana@Example.com", Username: "ana", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ana", reg.Username)
	assert.NotEmpty(t, reg.ID)

	claims, err := f.tokens.Verify(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)

	stored, err := f.store.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	login, err := f.auth.Login(ctx, validation.LoginRequest{Email: "ANA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.ID, login.ID)

	claims, err = f.tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, claims.UserID)

	events, err := f.events.GetRecentEvents(ctx, reg.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventUserRegister, events[0].Type)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.auth.Register(ctx, validation.RegisterRequest{Email: "a@b.com", Username: "a", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, validation.RegisterRequest{Email: "A@B.com", Username: "other", Password: "secret2"})
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, "User already exists", apperrors.Message(err))
}

// racingUsers hides existing users from the pre-check so the unique index is
// what rejects the second insert.
type racingUsers struct {
	repository.UserRepository
}

func (racingUsers) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, repository.ErrNotFound
}

func TestRegisterLostRaceIsConflict(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := NewAuthService(racingUsers{store.Users()}, auth.NewPasswordHasher(4), auth.NewTokenManager("s", time.Minute), nil)

	_, err := svc.Register(ctx, validation.RegisterRequest{Email: "a@b.com", Username: "a", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, validation.RegisterRequest{Email: "a@b.com", Username: "b", Password: "secret1"})
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.auth.Register(ctx, validation.RegisterRequest{Email: "a@b.com", Username: "a", Password: "12345"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.auth.Register(ctx, validation.RegisterRequest{Email: "a@b.com", Username: "a", Password: strings.Repeat("x", 80)})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, "Password must be at most 72 bytes", apperrors.Message(err))

	_, err = f.store.GetUserByEmail(ctx, "a@b.com")
	assert.ErrorIs(t, err, repository.ErrNotFound, "validation failures have no side effects")
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.auth.Register(ctx, validation.RegisterRequest{Email: "a@b.com", Username: "a", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, validation.LoginRequest{Email: "nobody@b.com", Password: "secret1"})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, "No user found", apperrors.Message(err))

	resp, err := f.auth.Login(ctx, validation.LoginRequest{Email: "a@b.com", Password: "wrong-password"})
	require.ErrorIs(t, err, apperrors.ErrAuthentication)
	assert.Equal(t, "Invalid password", apperrors.Message(err))
	assert.Empty(t, resp.Token)

	_, err = f.auth.Login(ctx, validation.LoginRequest{Email: "a@b.com"})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

type failingHasher struct{}

func (failingHasher) Hash(string) (string, error)         { return "", errors.New("entropy exhausted") }
func (failingHasher) Verify(string, string) (bool, error) { return false, errors.New("entropy exhausted") }

func TestRegisterHasherFailureIsInternal(t *testing.T) {
	store := newStore(t)
	svc := NewAuthService(store.Users(), failingHasher{}, auth.NewTokenManager("s", time.Minute), nil)

	_, err := svc.Register(context.Background(), validation.RegisterRequest{Email: "a@b.com", Username: "a", Password: "secret1"})
	require.ErrorIs(t, err, apperrors.ErrInternal)
	assert.Equal(t, "internal server error", apperrors.Message(err))
}

func TestGetUserByID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reg, err := f.auth.Register(ctx, validation.RegisterRequest{Email: "a@b.com", Username: "a", Password: "secret1"})
	require.NoError(t, err)

	user, err := f.auth.GetUserByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Empty(t, user.PasswordHash)

	_, err = f.auth.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
