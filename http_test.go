package accounts_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
)

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: accounts.ErrorHandler(nopLogger{})})
	app.Get("/validation", func(c *fiber.Ctx) error {
		return accounts.NewValidationError(map[string]string{"email": "Invalid email format"})
	})
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return accounts.ErrDuplicateKey
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("database exploded: secret detail")
	})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(http.StatusTeapot, "short and stout")
	})
	app.Use(accounts.NotFoundHandler)

	tests := []struct {
		path    string
		status  int
		message string
		check   func(t *testing.T, env accounts.Envelope)
	}{
		{"/validation", http.StatusBadRequest, "Validation failed", func(t *testing.T, env accounts.Envelope) {
			assert.Equal(t, "Invalid email format", env.Errors["email"])
			assert.Equal(t, accounts.TextCodeValidation, env.Code)
		}},
		{"/conflict", http.StatusConflict, "User with this email already exists", func(t *testing.T, env accounts.Envelope) {
			assert.Equal(t, accounts.TextCodeDuplicateKey, env.Code)
		}},
		{"/boom", http.StatusInternalServerError, accounts.MsgInternalError, func(t *testing.T, env accounts.Envelope) {
			assert.NotContains(t, env.Error, "secret")
		}},
		{"/teapot", http.StatusTeapot, "short and stout", nil},
		{"/missing", http.StatusNotFound, accounts.MsgRouteNotFound, func(t *testing.T, env accounts.Envelope) {
			assert.Equal(t, accounts.MsgRouteNotFoundError, env.Error)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil), -1)
			require.NoError(t, err)
			defer res.Body.Close()

			assert.Equal(t, tt.status, res.StatusCode)

			var env accounts.Envelope
			require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
			assert.False(t, env.Success)
			assert.Equal(t, tt.message, env.Message)
			if tt.check != nil {
				tt.check(t, env)
			}
		})
	}
}

func TestSendSuccess(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return accounts.SendSuccess(c, http.StatusCreated, accounts.MsgUserCreated, map[string]string{"id": "1"})
	})

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusCreated, res.StatusCode)

	var env struct {
		Success bool              `json:"success"`
		Message string            `json:"message"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	assert.True(t, env.Success)
	assert.Equal(t, accounts.MsgUserCreated, env.Message)
	assert.Equal(t, "1", env.Data["id"])
}
