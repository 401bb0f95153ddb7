package accounts

import (
	"context"
	"math"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// UserPage is a page of users, newest first
type UserPage struct {
	Users      []PublicUser `json:"users"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
}

// UserService orchestrates account management on top of the store
type UserService struct {
	store            CredentialStore
	hasher           PasswordAuthenticator
	logger           Logger
	activitySink     ActivitySink
	defaultLimit     int
	maxLimit         int
	deterministicIDs bool
}

func NewUserService(store CredentialStore, hasher PasswordAuthenticator) *UserService {
	return &UserService{
		store:        store,
		hasher:       hasher,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		defaultLimit: DefaultPageLimit,
		maxLimit:     MaxPageLimit,
	}
}

func (s *UserService) WithLogger(logger Logger) *UserService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *UserService) WithActivitySink(sink ActivitySink) *UserService {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithPagination sets the default and maximum page sizes
func (s *UserService) WithPagination(defaultLimit, maxLimit int) *UserService {
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	if defaultLimit > 0 && defaultLimit <= s.maxLimit {
		s.defaultLimit = defaultLimit
	}
	return s
}

// WithDeterministicIDs derives user ids from the email address
func (s *UserService) WithDeterministicIDs(enabled bool) *UserService {
	s.deterministicIDs = enabled
	return s
}

// Create registers a new account. The email must not be taken.
// Register is public self sign up. The requested role is discarded and the
// account is always created as RoleUser.
func (s *UserService) Register(ctx context.Context, input CreateUserInput) (*PublicUser, error) {
	input.Role = RoleUser
	return s.Create(ctx, nil, input)
}

func (s *UserService) Create(ctx context.Context, actor *Principal, input CreateUserInput) (*PublicUser, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	email := NormalizeEmail(input.Email)

	existing, err := s.store.FindByEmailWithPassword(ctx, email)
	if err != nil && !goerrors.Is(err, ErrNotFound) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing user")
	}
	if existing != nil {
		return nil, ErrDuplicateKey
	}

	if err := ctx.Err(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled during user creation")
	}

	hash, err := s.hasher.HashPassword(input.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	role, _ := ParseRole(string(input.Role))
	user := &User{
		Email:        email,
		Name:         input.Name,
		PasswordHash: hash,
		Role:         role,
		Status:       UserStatusActive,
	}

	if s.deterministicIDs {
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}
	}

	created, err := s.store.Create(ctx, user)
	if err != nil {
		if goerrors.Is(err, ErrDuplicateKey) {
			return nil, ErrDuplicateKey
		}
		s.logger.Error("create user error", "email", email, "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
	}

	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventUserCreated,
		Actor:     actorFromPrincipal(actor),
		UserID:    created.ID.String(),
		Metadata: map[string]any{
			"role": string(created.Role),
		},
	})

	out := created.Public()
	return &out, nil
}

// Get loads a single user by id
func (s *UserService) Get(ctx context.Context, id string) (*PublicUser, error) {
	uid, err := ParseUserID(id)
	if err != nil {
		return nil, err
	}

	user, err := s.store.FindByID(ctx, uid)
	if err != nil {
		return nil, s.storeError(err, "failed to retrieve user")
	}

	out := user.Public()
	return &out, nil
}

// Update applies a partial update to the user
func (s *UserService) Update(ctx context.Context, actor *Principal, id string, input UpdateUserInput) (*PublicUser, error) {
	uid, err := ParseUserID(id)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	changes := input.Changes()
	if changes.Email != nil {
		existing, err := s.store.FindByEmailWithPassword(ctx, *changes.Email)
		if err != nil && !goerrors.Is(err, ErrNotFound) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing user")
		}
		if existing != nil && existing.ID != uid {
			return nil, ErrDuplicateKey
		}
	}

	user, err := s.store.UpdateByID(ctx, uid, changes)
	if err != nil {
		return nil, s.storeError(err, "failed to update user")
	}

	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventUserUpdated,
		Actor:     actorFromPrincipal(actor),
		UserID:    user.ID.String(),
		Metadata:  changedFields(changes),
	})

	out := user.Public()
	return &out, nil
}

// ChangePassword stores a new hash for the user
func (s *UserService) ChangePassword(ctx context.Context, actor *Principal, id string, input ChangePasswordInput) error {
	uid, err := ParseUserID(id)
	if err != nil {
		return err
	}

	if err := input.Validate(); err != nil {
		return err
	}

	hash, err := s.hasher.HashPassword(input.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	if _, err := s.store.UpdateByID(ctx, uid, UserChanges{PasswordHash: &hash}); err != nil {
		return s.storeError(err, "failed to update user password")
	}

	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventPasswordChange,
		Actor:     actorFromPrincipal(actor),
		UserID:    uid.String(),
	})

	return nil
}

// Delete removes the user
func (s *UserService) Delete(ctx context.Context, actor *Principal, id string) error {
	uid, err := ParseUserID(id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteByID(ctx, uid); err != nil {
		return s.storeError(err, "failed to delete user")
	}

	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventUserDeleted,
		Actor:     actorFromPrincipal(actor),
		UserID:    uid.String(),
	})

	return nil
}

// List returns a page of users sorted by creation date, newest first.
// A zero limit uses the default page size.
func (s *UserService) List(ctx context.Context, page, limit int) (*UserPage, error) {
	if limit == 0 {
		limit = s.defaultLimit
	}
	if page < 1 || limit < 1 || limit > s.maxLimit {
		return nil, ErrBadPagination
	}
	// the offset (page-1)*limit must fit in an int
	if page > math.MaxInt/limit {
		return nil, ErrBadPagination
	}

	records, total, err := s.store.CountAndPage(ctx, (page-1)*limit, limit)
	if err != nil {
		s.logger.Error("list users error", "page", page, "limit", limit, "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
	}

	out := &UserPage{
		Users:      make([]PublicUser, 0, len(records)),
		Total:      total,
		Page:       page,
		TotalPages: (total + limit - 1) / limit,
	}
	for _, record := range records {
		out.Users = append(out.Users, record.Public())
	}

	return out, nil
}

func (s *UserService) storeError(err error, msg string) error {
	switch {
	case goerrors.Is(err, ErrNotFound):
		return ErrNotFound
	case goerrors.Is(err, ErrDuplicateKey):
		return ErrDuplicateKey
	}
	s.logger.Error(msg, "error", err)
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

func changedFields(changes UserChanges) map[string]any {
	fields := []string{}
	if changes.Name != nil {
		fields = append(fields, "name")
	}
	if changes.Email != nil {
		fields = append(fields, "email")
	}
	if changes.Role != nil {
		fields = append(fields, "role")
	}
	if changes.Status != nil {
		fields = append(fields, "status")
	}

	out := map[string]any{"fields": fields}
	if changes.Role != nil {
		out["to_role"] = string(*changes.Role)
	}
	if changes.Status != nil {
		out["to_status"] = string(*changes.Status)
	}
	return out
}
