package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad email"), http.StatusBadRequest},
		{Conflict("User already exists"), http.StatusBadRequest},
		{Authentication("Invalid password"), http.StatusUnauthorized},
		{Forbidden("not authorized to update"), http.StatusForbidden},
		{NotFound("No user found"), http.StatusNotFound},
		{Internal(errors.New("disk full")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("update listing: %w", Forbidden("not authorized to update"))

	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestMessageHidesInternalCause(t *testing.T) {
	err := Internal(errors.New("connection refused to 10.0.0.3"))

	assert.Equal(t, "internal server error", Message(err))
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, "User already exists", Message(Conflict("User already exists")))
}
