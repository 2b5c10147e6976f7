package services

import (
	"context"
	"errors"

	"github.com/isdelr/carlist-be/internal/apperrors"
	"github.com/isdelr/carlist-be/internal/models"
	"github.com/isdelr/carlist-be/internal/repository"
	"github.com/isdelr/carlist-be/internal/validation"
	"github.com/rs/zerolog/log"
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) (bool, error)
}

// TokenIssuer signs access tokens for an identity.
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	Message  string `json:"message"`
	Token    string `json:"token"`
	Username string `json:"username"`
	ID       string `json:"id"`
}

// AuthServiceProvider defines the interface for registration and login.
type AuthServiceProvider interface {
	Register(ctx context.Context, req validation.RegisterRequest) (AuthResponse, error)
	Login(ctx context.Context, req validation.LoginRequest) (AuthResponse, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// AuthService provides business logic for user accounts.
type AuthService struct {
	users  repository.UserRepository
	hasher Hasher
	tokens TokenIssuer
	events EventServiceProvider
}

// NewAuthService creates a new AuthService. events may be nil.
func NewAuthService(users repository.UserRepository, hasher Hasher, tokens TokenIssuer, events EventServiceProvider) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, events: events}
}

// Register creates an account and returns a token for it. The token claims
// are taken from the persisted record.
func (s *AuthService) Register(ctx context.Context, req validation.RegisterRequest) (AuthResponse, error) {
	req.Normalize()
	if err := validation.Struct(&req); err != nil {
		return AuthResponse{}, err
	}

	// Fast path only. The unique index decides races below.
	if _, err := s.users.GetUserByEmail(ctx, req.Email); err == nil {
		return AuthResponse{}, apperrors.Conflict("User already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return AuthResponse{}, apperrors.Internal(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return AuthResponse{}, apperrors.Internal(err)
	}

	user := &models.User{Username: req.Username, Email: req.Email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return AuthResponse{}, apperrors.Conflict("User already exists")
		}
		return AuthResponse{}, apperrors.Internal(err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return AuthResponse{}, apperrors.Internal(err)
	}

	log.Info().Str("user_id", user.ID).Msg("User registered")
	record(ctx, s.events, user.ID, models.EventUserRegister, "Account created for "+user.Username, nil)

	return AuthResponse{
		Message:  "User registered successfully",
		Token:    token,
		Username: user.Username,
		ID:       user.ID,
	}, nil
}

// Login verifies credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, req validation.LoginRequest) (AuthResponse, error) {
	req.Normalize()
	if err := validation.Struct(&req); err != nil {
		return AuthResponse{}, err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResponse{}, apperrors.NotFound("No user found")
		}
		return AuthResponse{}, apperrors.Internal(err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, req.Password)
	if err != nil {
		return AuthResponse{}, apperrors.Internal(err)
	}
	if !ok {
		log.Warn().Str("user_id", user.ID).Msg("Failed authentication attempt")
		return AuthResponse{}, apperrors.Authentication("Invalid password")
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return AuthResponse{}, apperrors.Internal(err)
	}

	return AuthResponse{
		Message:  "Login successful",
		Token:    token,
		Username: user.Username,
		ID:       user.ID,
	}, nil
}

// GetUserByID returns the profile of a user without the password hash.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.User{}, apperrors.NotFound("No user found")
		}
		return models.User{}, apperrors.Internal(err)
	}
	user.PasswordHash = ""
	return *user, nil
}
