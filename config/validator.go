package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-accounts"
)

// RegisterCustomValidators registers the accounts specific rules.
func RegisterCustomValidators(v *validator.Validate) error {
	// duration_expr: "7d", "12h", "3600"
	if err := v.RegisterValidation("duration_expr", validateDurationExpr); err != nil {
		return fmt.Errorf("failed to register duration_expr validator: %w", err)
	}
	return nil
}

func validateDurationExpr(fl validator.FieldLevel) bool {
	d, err := accounts.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// Validate validates the Config using struct tags and cross-field rules.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateSecret(); err != nil {
		return err
	}

	return nil
}

// validateSecret requires a signing key outside development and test.
func (c *Config) validateSecret() error {
	if c.Auth.JWTSecret != "" {
		return nil
	}
	if c.Env == EnvProduction {
		return errors.New("auth.jwt_secret is required in production")
	}
	return nil
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, e.Param())
	case "ltefield":
		return fmt.Sprintf("%s must not exceed %s", field, e.Param())
	case "duration_expr":
		return fmt.Sprintf("%s must be a positive duration such as 7d, 12h or 3600", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
