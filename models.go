package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus captures the lifecycle state of an account
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// IsValid checks the status against the known lifecycle states
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	default:
		return false
	}
}

// User is the user model. PasswordHash never leaves the store adapter
// or the authentication service, handlers serialize PublicUser instead.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	Name          string     `bun:"name,notnull" json:"name"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          Role       `bun:"role,notnull" json:"role"`
	Status        UserStatus `bun:"status,notnull" json:"status"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
}

// PublicUser is the user projection exposed over the wire
type PublicUser struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	Status    UserStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Public returns the projection of the user without credentials
func (u *User) Public() PublicUser {
	if u == nil {
		return PublicUser{}
	}
	return PublicUser{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Principal builds the token subject for the user
func (u *User) Principal() Principal {
	return Principal{
		UserID: u.ID.String(),
		Email:  u.Email,
		Role:   u.Role,
	}
}

// UserChanges is a partial update, nil fields are left untouched
type UserChanges struct {
	Name         *string
	Email        *string
	Role         *Role
	Status       *UserStatus
	PasswordHash *string
}

// IsEmpty reports whether the update carries no change
func (c UserChanges) IsEmpty() bool {
	return c.Name == nil && c.Email == nil && c.Role == nil && c.Status == nil && c.PasswordHash == nil
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseUserID parses a user id, returning ErrInvalidID on malformed input
func ParseUserID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, ErrInvalidID
	}
	return uid, nil
}

func prepareUserDefaults(user *User) {
	if user == nil {
		return
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = NormalizeEmail(user.Email)
	user.Name = strings.TrimSpace(user.Name)
	if user.Role == "" {
		user.Role = RoleUser
	}
	if user.Status == "" {
		user.Status = UserStatusActive
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
}
