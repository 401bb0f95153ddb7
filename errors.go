package accounts

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	TextCodeAccountSuspended        = "ACCOUNT_SUSPENDED"
	TextCodeAccountInactive         = "ACCOUNT_INACTIVE"
	TextCodeAccountNotActive        = "ACCOUNT_NOT_ACTIVE"
	TextCodeAuthenticationRequired  = "AUTHENTICATION_REQUIRED"
	TextCodeInvalidToken            = "INVALID_TOKEN"
	TextCodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	TextCodeAccessDenied            = "ACCESS_DENIED"
	TextCodeNotFound                = "USER_NOT_FOUND"
	TextCodeDuplicateKey            = "DUPLICATE_EMAIL"
	TextCodeEncoding                = "TOKEN_ENCODING_FAILED"
	TextCodeInvalidID               = "INVALID_USER_ID"
	TextCodeBadPagination           = "INVALID_PAGINATION"
	TextCodeValidation              = "VALIDATION_FAILED"
	TextCodeEmptyPassword           = "EMPTY_PASSWORD"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
// Both cases share the same error so callers cannot enumerate accounts.
var ErrInvalidCredentials = goerrors.New("Invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountSuspended is returned on login by a suspended account
var ErrAccountSuspended = goerrors.New("Account is suspended", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAccountSuspended).
	WithCode(goerrors.CodeForbidden)

// ErrAccountInactive is returned on login by an inactive account
var ErrAccountInactive = goerrors.New("Account is inactive", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAccountInactive).
	WithCode(goerrors.CodeForbidden)

// ErrAccountNotActive is returned on refresh for any non active account
var ErrAccountNotActive = goerrors.New("Account is not active", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAccountNotActive).
	WithCode(goerrors.CodeForbidden)

// ErrAuthenticationRequired is returned when no principal is attached to the request
var ErrAuthenticationRequired = goerrors.New("Access token required", goerrors.CategoryAuth).
	WithTextCode(TextCodeAuthenticationRequired).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidToken covers bad signatures, malformed and expired tokens alike
var ErrInvalidToken = goerrors.New("Invalid or expired token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

var ErrInsufficientPermissions = goerrors.New("Insufficient permissions", goerrors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientPermissions).
	WithCode(goerrors.CodeForbidden)

var ErrAccessDenied = goerrors.New("Access denied", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAccessDenied).
	WithCode(goerrors.CodeForbidden)

// ErrNotFound is returned when the user record does not exist
var ErrNotFound = goerrors.New("User not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrDuplicateKey is returned when the email is already taken
var ErrDuplicateKey = goerrors.New("User with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateKey).
	WithCode(goerrors.CodeConflict)

// ErrEncoding is returned when a token could not be issued
var ErrEncoding = goerrors.New("Token generation failed", goerrors.CategoryInternal).
	WithTextCode(TextCodeEncoding).
	WithCode(goerrors.CodeInternal)

var ErrInvalidID = goerrors.New("Invalid user ID format", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidID).
	WithCode(goerrors.CodeBadRequest)

var ErrBadPagination = goerrors.New("Invalid pagination parameters", goerrors.CategoryBadInput).
	WithTextCode(TextCodeBadPagination).
	WithCode(goerrors.CodeBadRequest)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// NewValidationError builds a 400 error carrying per field messages
// in its metadata under the "fields" key.
func NewValidationError(fields map[string]string) *goerrors.Error {
	return goerrors.New("Validation failed", goerrors.CategoryValidation).
		WithTextCode(TextCodeValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"fields": fields,
		})
}

// ValidationFields returns the field messages of a validation error, if any.
func ValidationFields(err error) (map[string]string, bool) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != TextCodeValidation {
		return nil, false
	}
	fields, ok := richErr.Metadata["fields"].(map[string]string)
	return fields, ok
}

// StatusCode resolves the HTTP status for an error. Errors that are not
// rich errors are internal failures.
func StatusCode(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
