package accounts

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// LoginInput carries the credentials of a login attempt
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by a successful login
type AuthResult struct {
	User      PublicUser `json:"user"`
	Token     string     `json:"token"`
	ExpiresIn string     `json:"expiresIn"`
}

// TokenResult is returned by a token refresh
type TokenResult struct {
	Token     string `json:"token"`
	ExpiresIn string `json:"expiresIn"`
}

// Auther verifies credentials and issues tokens
type Auther struct {
	store        CredentialStore
	hasher       PasswordAuthenticator
	tokens       *TokenService
	logger       Logger
	activitySink ActivitySink

	decoyOnce sync.Once
	decoyHash string
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(store CredentialStore, hasher PasswordAuthenticator, tokens *TokenService) *Auther {
	return &Auther{
		store:        store,
		hasher:       hasher,
		tokens:       tokens,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() *TokenService {
	return s.tokens
}

// Login verifies the credentials and issues a token. Unknown emails and
// wrong passwords fail with the same ErrInvalidCredentials. Account status
// is only checked once the password matched.
func (s *Auther) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := NormalizeEmail(input.Email)

	user, err := s.store.FindByEmailWithPassword(ctx, email)
	if err != nil && !goerrors.Is(err, ErrNotFound) {
		s.logger.Error("Login lookup error", "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during login")
	}

	if user == nil {
		// keep the response time close to a real comparison
		_ = s.hasher.ComparePasswordAndHash(input.Password, s.decoy())
		s.loginFailed(ctx, "", email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if err := s.hasher.ComparePasswordAndHash(input.Password, user.PasswordHash); err != nil {
		if !goerrors.Is(err, ErrInvalidCredentials) {
			s.logger.Error("Login password comparison error", "user_id", user.ID, "error", err)
		}
		s.loginFailed(ctx, user.ID.String(), email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	switch user.Status {
	case UserStatusSuspended:
		s.logger.Warn("Login blocked due to user status", "user_id", user.ID, "status", user.Status)
		s.loginFailed(ctx, user.ID.String(), email, ErrAccountSuspended)
		return nil, ErrAccountSuspended
	case UserStatusInactive:
		s.logger.Warn("Login blocked due to user status", "user_id", user.ID, "status", user.Status)
		s.loginFailed(ctx, user.ID.String(), email, ErrAccountInactive)
		return nil, ErrAccountInactive
	}

	token, err := s.tokens.Encode(user.Principal())
	if err != nil {
		s.loginFailed(ctx, user.ID.String(), email, err)
		return nil, err
	}

	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{ID: user.ID.String(), Type: string(user.Role)},
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"email": email,
		},
	})

	return &AuthResult{
		User:      user.Public(),
		Token:     token,
		ExpiresIn: s.tokens.ExpiresIn(),
	}, nil
}

// RefreshToken issues a new token for an authenticated user. Previously
// issued tokens stay valid until they expire.
func (s *Auther) RefreshToken(ctx context.Context, userID string) (*TokenResult, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		s.refreshFailed(ctx, userID, err)
		return nil, err
	}

	if user.Status != UserStatusActive {
		s.refreshFailed(ctx, userID, ErrAccountNotActive)
		return nil, ErrAccountNotActive
	}

	token, err := s.tokens.Encode(user.Principal())
	if err != nil {
		s.refreshFailed(ctx, userID, err)
		return nil, err
	}

	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventTokenRefreshed,
		Actor:     ActorRef{ID: userID, Type: string(user.Role)},
		UserID:    userID,
	})

	return &TokenResult{Token: token, ExpiresIn: s.tokens.ExpiresIn()}, nil
}

// GetCurrentUser loads the public profile of the user, the boolean is
// false when the record no longer exists.
func (s *Auther) GetCurrentUser(ctx context.Context, userID string) (*PublicUser, bool, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		if goerrors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	out := user.Public()
	return &out, true, nil
}

// Logout is stateless, tokens stay valid until they expire. The event is
// still recorded for auditing.
func (s *Auther) Logout(ctx context.Context, principal *Principal) {
	if principal == nil {
		return
	}
	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLogout,
		Actor:     actorFromPrincipal(principal),
		UserID:    principal.UserID,
	})
}

func (s *Auther) findUser(ctx context.Context, userID string) (*User, error) {
	id, err := ParseUserID(userID)
	if err != nil {
		return nil, ErrNotFound
	}

	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if goerrors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("find user error", "user_id", userID, "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user")
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *Auther) decoy() string {
	s.decoyOnce.Do(func() {
		h, err := s.hasher.HashPassword("decoy-password-for-missing-users")
		if err != nil {
			s.logger.Error("failed to build decoy hash", "error", err)
		}
		s.decoyHash = h
	})
	return s.decoyHash
}

func (s *Auther) loginFailed(ctx context.Context, userID, email string, err error) {
	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{ID: userID, Type: "unknown"},
		UserID:    userID,
		Metadata: map[string]any{
			"email": email,
			"error": err.Error(),
		},
	})
}

func (s *Auther) refreshFailed(ctx context.Context, userID string, err error) {
	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventRefreshFailure,
		Actor:     ActorRef{ID: userID, Type: "unknown"},
		UserID:    userID,
		Metadata: map[string]any{
			"error": err.Error(),
		},
	})
}
