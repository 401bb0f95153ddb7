package accounts_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/goliatone/go-accounts"
)

// MockStore implements accounts.CredentialStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindByEmailWithPassword(ctx context.Context, email string) (*accounts.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockStore) FindByID(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, user)
	if fn, ok := args.Get(0).(func(context.Context, *accounts.User) *accounts.User); ok {
		return fn(ctx, user), args.Error(1)
	}
	created, _ := args.Get(0).(*accounts.User)
	return created, args.Error(1)
}

func (m *MockStore) UpdateByID(ctx context.Context, id uuid.UUID, changes accounts.UserChanges) (*accounts.User, error) {
	args := m.Called(ctx, id, changes)
	if fn, ok := args.Get(0).(func(context.Context, uuid.UUID, accounts.UserChanges) *accounts.User); ok {
		return fn(ctx, id, changes), args.Error(1)
	}
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) CountAndPage(ctx context.Context, offset, limit int) ([]*accounts.User, int, error) {
	args := m.Called(ctx, offset, limit)
	users, _ := args.Get(0).([]*accounts.User)
	return users, args.Int(1), args.Error(2)
}

// MockConfig implements accounts.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetTokenExpiration() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetIssuer() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	audience, _ := args.Get(0).([]string)
	return audience
}

func (m *MockConfig) GetContextKey() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetSaltWorkFactor() int {
	return m.Called().Int(0)
}

func newMockConfig() *MockConfig {
	cfg := new(MockConfig)
	cfg.On("GetSigningKey").Return("test-signing-key")
	cfg.On("GetTokenExpiration").Return("7d")
	cfg.On("GetIssuer").Return("")
	cfg.On("GetAudience").Return([]string(nil))
	cfg.On("GetContextKey").Return("user")
	cfg.On("GetSaltWorkFactor").Return(4)
	return cfg
}

type recordingSink struct {
	mu     sync.Mutex
	events []accounts.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event accounts.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []accounts.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]accounts.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

var testHasher = accounts.NewHasher(4)

const testPassword = "Passw0rd!"

func mustHash(password string) string {
	hash, err := testHasher.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}

func newTestUser(email string, role accounts.Role, status accounts.UserStatus) *accounts.User {
	return &accounts.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: mustHash(testPassword),
		Role:         role,
		Status:       status,
	}
}

func newTestTokens(t interface{ Helper() }) *accounts.TokenService {
	t.Helper()
	tokens, err := accounts.NewTokenServiceFromConfig(newMockConfig(), nopLogger{})
	if err != nil {
		panic(err)
	}
	return tokens
}
