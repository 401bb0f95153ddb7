package accounts

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var (
	nameRegexp  = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
	emailRegexp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const passwordSpecials = "@$!%*?&"

// Validate will validate the payload
func (r LoginInput) Validate() error {
	return toValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	))
}

// CreateUserInput is the payload to register a user
type CreateUserInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            Role   `json:"role,omitempty"`
}

// Validate will validate the payload
func (r CreateUserInput) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	return toValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Name, nameRules()...),
		validation.Field(&r.Email, emailRules()...),
		validation.Field(&r.Password, passwordRules()...),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
		validation.Field(&r.Role, validation.By(validateRole)),
	))
}

// UpdateUserInput is a partial update, at least one field is required
type UpdateUserInput struct {
	Name   *string     `json:"name,omitempty"`
	Email  *string     `json:"email,omitempty"`
	Role   *Role       `json:"role,omitempty"`
	Status *UserStatus `json:"status,omitempty"`
}

// Validate will validate the payload
func (r UpdateUserInput) Validate() error {
	if r.Name == nil && r.Email == nil && r.Role == nil && r.Status == nil {
		return NewValidationError(map[string]string{
			"body": "At least one field must be provided for update",
		})
	}

	errs := validation.Errors{}
	if r.Name != nil {
		errs["name"] = validation.Validate(strings.TrimSpace(*r.Name), nameRules()...)
	}
	if r.Email != nil {
		errs["email"] = validation.Validate(NormalizeEmail(*r.Email), emailRules()...)
	}
	if r.Role != nil {
		errs["role"] = validation.Validate(*r.Role, validation.Required, validation.By(validateRole))
	}
	if r.Status != nil {
		errs["status"] = validation.Validate(*r.Status, validation.Required, validation.By(validateStatus))
	}

	return toValidationError(errs.Filter())
}

// Changes converts the payload into store changes
func (r UpdateUserInput) Changes() UserChanges {
	changes := UserChanges{
		Role:   r.Role,
		Status: r.Status,
	}
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		changes.Name = &name
	}
	if r.Email != nil {
		email := NormalizeEmail(*r.Email)
		changes.Email = &email
	}
	return changes
}

// ChangePasswordInput is the payload to replace a password
type ChangePasswordInput struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate will validate the payload
func (r ChangePasswordInput) Validate() error {
	return toValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Password, passwordRules()...),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	))
}

func nameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(2, 50),
		validation.Match(nameRegexp).Error("Name can only contain letters, spaces, hyphens, and apostrophes"),
	}
}

func emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(5, 255),
		validation.Match(emailRegexp).Error("Invalid email format"),
		is.Email,
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(8, 128),
		validation.By(validatePasswordStrength),
	}
}

// ValidateStringEquals checks the value matches str
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("Passwords don't match")
		}
		return nil
	}
}

func validatePasswordStrength(value any) error {
	s, _ := value.(string)
	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return errors.New("Password must contain at least one lowercase letter, one uppercase letter, one number, and one special character")
	}
	return nil
}

func validateRole(value any) error {
	r, _ := value.(Role)
	if r == "" {
		return nil
	}
	if !r.IsValid() {
		return errors.New("Role must be one of user, admin, moderator")
	}
	return nil
}

func validateStatus(value any) error {
	s, _ := value.(UserStatus)
	if !s.IsValid() {
		return errors.New("Status must be one of active, inactive, suspended")
	}
	return nil
}

// toValidationError converts ozzo errors into the rich validation error
func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}

	fields := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		if fieldErr == nil {
			continue
		}
		fields[field] = fieldErr.Error()
	}
	if len(fields) == 0 {
		return nil
	}
	return NewValidationError(fields)
}
