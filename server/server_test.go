package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/persistence"
	"github.com/goliatone/go-accounts/server"
)

const testPassword = "Passw0rd!"

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Errors  map[string]string `json:"errors"`
}

type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

func testConfig() *config.Config {
	cfg := &config.Config{Env: config.EnvTest}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.SaltWorkFactor = 4
	cfg.SetDefaults()
	return cfg
}

func newTestServer(t *testing.T) (*server.Server, *prometheus.Registry) {
	t.Helper()
	return newTestServerWithConfig(t, testConfig())
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config) (*server.Server, *prometheus.Registry) {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := persistence.Open(ctx, persistence.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, persistence.Migrate(ctx, db, persistence.DriverSQLite))

	reg := prometheus.NewRegistry()
	srv, err := server.New(server.Options{
		Config:   cfg,
		DB:       db,
		Loggers:  func(string) accounts.Logger { return quietLogger{} },
		Registry: reg,
		Version:  "test",
	})
	require.NoError(t, err)

	return srv, reg
}

func seedUser(t *testing.T, srv *server.Server, email string, role accounts.Role) *accounts.PublicUser {
	t.Helper()
	user, err := srv.Services().Users.Create(context.Background(), nil, accounts.CreateUserInput{
		Name:            "Seed User",
		Email:           email,
		Password:        testPassword,
		ConfirmPassword: testPassword,
		Role:            role,
	})
	require.NoError(t, err)
	return user
}

func do(t *testing.T, srv *server.Server, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return res.StatusCode, env
}

func login(t *testing.T, srv *server.Server, email string) string {
	t.Helper()
	status, env := do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	var res accounts.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func TestServer_LoginAndProfile(t *testing.T) {
	srv, _ := newTestServer(t)
	user := seedUser(t, srv, "jane@example.com", accounts.RoleUser)

	token := login(t, srv, "Jane@Example.com")

	status, env := do(t, srv, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.Equal(t, accounts.MsgProfileRetrieved, env.Message)
	assert.NotContains(t, string(env.Data), "password")

	var me accounts.PublicUser
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "jane@example.com", me.Email)
}

func TestServer_LoginFailures(t *testing.T) {
	srv, _ := newTestServer(t)
	seedUser(t, srv, "jane@example.com", accounts.RoleUser)

	status, env := do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "Wr0ngPass!",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid email or password", env.Message)

	status, env = do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", env.Message)

	status, env = do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "email")
	assert.Contains(t, env.Errors, "password")
}

func TestServer_ProtectedRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	status, env := do(t, srv, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Access token required", env.Message)

	status, env = do(t, srv, http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", env.Message)
}

func TestServer_UserManagement(t *testing.T) {
	srv, _ := newTestServer(t)
	seedUser(t, srv, "admin@example.com", accounts.RoleAdmin)
	seedUser(t, srv, "mod@example.com", accounts.RoleModerator)
	member := seedUser(t, srv, "member@example.com", accounts.RoleUser)

	adminToken := login(t, srv, "admin@example.com")
	modToken := login(t, srv, "mod@example.com")
	memberToken := login(t, srv, "member@example.com")

	create := map[string]string{
		"name":            "New Person",
		"email":           "new@example.com",
		"password":        testPassword,
		"confirmPassword": testPassword,
	}

	status, _ := do(t, srv, http.MethodPost, "/api/users", memberToken, create)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := do(t, srv, http.MethodPost, "/api/users", adminToken, create)
	require.Equal(t, http.StatusCreated, status, env.Message)
	var created accounts.PublicUser
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, accounts.RoleUser, created.Role)
	assert.Equal(t, accounts.UserStatusActive, created.Status)

	status, env = do(t, srv, http.MethodPost, "/api/users", adminToken, create)
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Success)

	status, env = do(t, srv, http.MethodGet, "/api/users?page=1&limit=2", modToken, nil)
	require.Equal(t, http.StatusOK, status)
	var page accounts.UserPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Users, 2)

	status, env = do(t, srv, http.MethodGet, "/api/users?page=9223372036854775807&limit=100", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)

	status, _ = do(t, srv, http.MethodGet, "/api/users", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, srv, http.MethodGet, "/api/users/"+member.ID, memberToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = do(t, srv, http.MethodGet, "/api/users/"+created.ID, memberToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Access denied", env.Message)

	status, _ = do(t, srv, http.MethodPut, "/api/users/"+member.ID, memberToken, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = do(t, srv, http.MethodPut, "/api/users/"+member.ID, memberToken, map[string]string{"name": "Renamed Member"})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Contains(t, string(env.Data), "Renamed Member")

	status, env = do(t, srv, http.MethodPut, "/api/users/"+member.ID, memberToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "body")

	status, _ = do(t, srv, http.MethodDelete, "/api/users/"+created.ID, modToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, srv, http.MethodDelete, "/api/users/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = do(t, srv, http.MethodGet, "/api/users/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found", env.Message)
}

func TestServer_ChangePasswordThenLogin(t *testing.T) {
	srv, _ := newTestServer(t)
	member := seedUser(t, srv, "member@example.com", accounts.RoleUser)
	token := login(t, srv, "member@example.com")

	next := "N3wPassw0rd?"
	status, env := do(t, srv, http.MethodPut, "/api/users/"+member.ID+"/password", token, map[string]string{
		"password":        next,
		"confirmPassword": next,
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, _ = do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "member@example.com",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "member@example.com",
		"password": next,
	})
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_RefreshRejectsSuspendedAccount(t *testing.T) {
	srv, _ := newTestServer(t)
	seedUser(t, srv, "admin@example.com", accounts.RoleAdmin)
	member := seedUser(t, srv, "member@example.com", accounts.RoleUser)

	adminToken := login(t, srv, "admin@example.com")
	memberToken := login(t, srv, "member@example.com")

	status, env := do(t, srv, http.MethodPost, "/api/auth/refresh", memberToken, nil)
	require.Equal(t, http.StatusOK, status)
	var refreshed accounts.TokenResult
	require.NoError(t, json.Unmarshal(env.Data, &refreshed))
	assert.NotEmpty(t, refreshed.Token)
	assert.Equal(t, "7d", refreshed.ExpiresIn)

	status, _ = do(t, srv, http.MethodPut, "/api/users/"+member.ID, adminToken, map[string]string{"status": "suspended"})
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, srv, http.MethodPost, "/api/auth/refresh", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "member@example.com",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = do(t, srv, http.MethodPost, "/api/auth/logout", memberToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, accounts.MsgLogoutSuccessful, env.Message)
}

func TestServer_HealthMetricsAndNotFound(t *testing.T) {
	srv, reg := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health-check", nil)
	res, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var healthEnv envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&healthEnv))
	assert.True(t, healthEnv.Success)
	assert.Equal(t, "Server is healthy", healthEnv.Message)

	var health server.HealthResponse
	require.NoError(t, json.Unmarshal(healthEnv.Data, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "connected", health.Database)
	assert.Equal(t, "test", health.Version)

	status, env := do(t, srv, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, accounts.MsgRouteNotFound, env.Message)
	assert.Equal(t, accounts.MsgRouteNotFoundError, env.Error)

	mreq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mres, err := srv.App().Test(mreq, -1)
	require.NoError(t, err)
	defer mres.Body.Close()
	assert.Equal(t, http.StatusOK, mres.StatusCode)
	body, err := io.ReadAll(mres.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "accounts_http_requests_total")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestServer_MetricsCanBeDisabled(t *testing.T) {
	cfg := testConfig()
	off := false
	cfg.Server.Metrics = &off
	srv, _ := newTestServerWithConfig(t, cfg)

	status, env := do(t, srv, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, accounts.MsgRouteNotFound, env.Message)
}

func TestServer_RegisterLoginAndProfile(t *testing.T) {
	srv, _ := newTestServer(t)

	status, env := do(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":            "New Member",
		"email":           "New.Member@Example.com",
		"password":        testPassword,
		"confirmPassword": testPassword,
		"role":            "admin",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.True(t, env.Success)
	assert.Equal(t, accounts.MsgUserRegistered, env.Message)

	var registered accounts.PublicUser
	require.NoError(t, json.Unmarshal(env.Data, &registered))
	assert.Equal(t, "new.member@example.com", registered.Email)
	assert.Equal(t, accounts.RoleUser, registered.Role)

	token := login(t, srv, "new.member@example.com")

	status, env = do(t, srv, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)

	var me accounts.PublicUser
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, registered.ID, me.ID)
	assert.Equal(t, accounts.RoleUser, me.Role)

	status, _ = do(t, srv, http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = do(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":            "New Member",
		"email":           "new.member@example.com",
		"password":        testPassword,
		"confirmPassword": testPassword,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Success)

	status, env = do(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "bad",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "email")
}
