package validation

import (
	"strings"
	"testing"

	"github.com/isdelr/carlist-be/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantMsg string
	}{
		{"valid", RegisterRequest{Email: "a@b.com", Username: "ana", Password: "secret"}, ""},
		{"bad email", RegisterRequest{Email: "nope", Username: "ana", Password: "secret"}, "Please enter a valid email"},
		{"missing email first", RegisterRequest{Username: "", Password: "x"}, "email is required"},
		{"missing username", RegisterRequest{Email: "a@b.com", Password: "secret"}, "username is required"},
		{"short password", RegisterRequest{Email: "a@b.com", Username: "ana", Password: "12345"}, "Password must be at least 6 characters"},
		{"password at bcrypt limit", RegisterRequest{Email: "a@b.com", Username: "ana", Password: strings.Repeat("p", 72)}, ""},
		{"long password", RegisterRequest{Email: "a@b.com", Username: "ana", Password: strings.Repeat("p", 73)}, "Password must be at most 72 bytes"},
		{"long multibyte password", RegisterRequest{Email: "a@b.com", Username: "ana", Password: strings.Repeat("é", 40)}, "Password must be at most 72 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.req)
			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Equal(t, tt.wantMsg, apperrors.Message(err))
		})
	}
}

func TestLoginRequestRequiresPassword(t *testing.T) {
	err := Struct(&LoginRequest{Email: "a@b.com"})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, "password is required", apperrors.Message(err))
}

func TestListingRequest(t *testing.T) {
	valid := func() ListingRequest {
		return ListingRequest{
			Title:       "Model 3",
			Description: "Long range",
			Images:      []string{"https://img.example.com/1.jpg"},
		}
	}

	require.NoError(t, Struct(&ListingRequest{Title: "t", Description: "d"}))

	r := valid()
	require.NoError(t, Struct(&r))

	r = valid()
	r.Description = ""
	assert.Equal(t, "description is required", apperrors.Message(Struct(&r)))

	r = valid()
	r.Images = []string{"not a url"}
	assert.Equal(t, "images[0] must be a valid URL", apperrors.Message(Struct(&r)))

	r = valid()
	r.Images = make([]string, 11)
	for i := range r.Images {
		r.Images[i] = "https://img.example.com/x.jpg"
	}
	assert.Equal(t, "images must have at most 10 entries", apperrors.Message(Struct(&r)))

	r = valid()
	r.Dealer = strings.Repeat("d", 101)
	assert.Equal(t, "dealer must be at most 100 characters", apperrors.Message(Struct(&r)))
}

func TestNormalize(t *testing.T) {
	reg := RegisterRequest{Email: "  Ana@Example.COM ", Username: " ana "}
	reg.Normalize()
	assert.Equal(t, "ana@example.com", reg.Email)
	assert.Equal(t, "ana", reg.Username)

	l := ListingRequest{Title: " t ", Images: []string{" https://x.io/a.png "}}
	l.Normalize()
	assert.Equal(t, "t", l.Title)
	assert.Equal(t, "https://x.io/a.png", l.Images[0])
}
