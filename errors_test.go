package accounts_test

import (
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	"github.com/goliatone/go-accounts"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid credentials", accounts.ErrInvalidCredentials, http.StatusUnauthorized},
		{"authentication required", accounts.ErrAuthenticationRequired, http.StatusUnauthorized},
		{"invalid token", accounts.ErrInvalidToken, http.StatusUnauthorized},
		{"suspended", accounts.ErrAccountSuspended, http.StatusForbidden},
		{"inactive", accounts.ErrAccountInactive, http.StatusForbidden},
		{"not active", accounts.ErrAccountNotActive, http.StatusForbidden},
		{"insufficient permissions", accounts.ErrInsufficientPermissions, http.StatusForbidden},
		{"access denied", accounts.ErrAccessDenied, http.StatusForbidden},
		{"not found", accounts.ErrNotFound, http.StatusNotFound},
		{"duplicate", accounts.ErrDuplicateKey, http.StatusConflict},
		{"invalid id", accounts.ErrInvalidID, http.StatusBadRequest},
		{"pagination", accounts.ErrBadPagination, http.StatusBadRequest},
		{"validation", accounts.NewValidationError(map[string]string{"email": "required"}), http.StatusBadRequest},
		{"encoding", accounts.ErrEncoding, http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped category", goerrors.Wrap(errors.New("boom"), goerrors.CategoryNotFound, "missing"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accounts.StatusCode(tt.err))
		})
	}
}

func TestValidationFields(t *testing.T) {
	err := accounts.NewValidationError(map[string]string{"email": "Invalid email format"})

	fields, ok := accounts.ValidationFields(err)
	assert.True(t, ok)
	assert.Equal(t, "Invalid email format", fields["email"])

	_, ok = accounts.ValidationFields(accounts.ErrNotFound)
	assert.False(t, ok)

	_, ok = accounts.ValidationFields(errors.New("boom"))
	assert.False(t, ok)
}

func TestSentinelsCarryTextCodes(t *testing.T) {
	var richErr *goerrors.Error

	assert.True(t, goerrors.As(accounts.ErrInvalidCredentials, &richErr))
	assert.Equal(t, accounts.TextCodeInvalidCredentials, richErr.TextCode)
	assert.Equal(t, "Invalid email or password", richErr.Message)

	assert.True(t, goerrors.As(accounts.ErrDuplicateKey, &richErr))
	assert.Equal(t, accounts.TextCodeDuplicateKey, richErr.TextCode)
}
