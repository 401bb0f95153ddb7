package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/server"
)

type countingLogger struct {
	quietLogger
	infos int
}

func (l *countingLogger) Info(string, ...any) { l.infos++ }

func TestMetrics_ActivitySink(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := server.NewMetrics(reg)
	logger := &countingLogger{}
	sink := metrics.ActivitySink(logger)

	ctx := context.Background()
	require.NoError(t, sink.Record(ctx, accounts.ActivityEvent{EventType: accounts.ActivityEventLoginSuccess, UserID: "u1"}))
	require.NoError(t, sink.Record(ctx, accounts.ActivityEvent{EventType: accounts.ActivityEventLoginSuccess, UserID: "u2"}))
	require.NoError(t, sink.Record(ctx, accounts.ActivityEvent{
		EventType: accounts.ActivityEventUserUpdated,
		UserID:    "u1",
		Metadata:  map[string]any{"to_status": "suspended"},
	}))

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.AuthEvents.WithLabelValues(string(accounts.ActivityEventLoginSuccess))))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.AuthEvents.WithLabelValues(string(accounts.ActivityEventUserUpdated))))
	assert.Equal(t, 3, logger.infos)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthChecker(t *testing.T) {
	healthy := server.NewHealthChecker(stubPinger{}, "1.0.0").Check(context.Background())
	assert.Equal(t, "healthy", healthy.Status)
	assert.Equal(t, "connected", healthy.Database)
	assert.Equal(t, "1.0.0", healthy.Version)
	assert.NotZero(t, healthy.Memory.Sys)

	unhealthy := server.NewHealthChecker(stubPinger{err: context.DeadlineExceeded}, "").Check(context.Background())
	assert.Equal(t, "unhealthy", unhealthy.Status)
	assert.NotEqual(t, "connected", unhealthy.Database)
}

func TestHealthChecker_HandlerEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		pinger  server.Pinger
		status  int
		success bool
		message string
	}{
		{name: "healthy", pinger: stubPinger{}, status: http.StatusOK, success: true, message: "Server is healthy"},
		{name: "unhealthy", pinger: stubPinger{err: context.DeadlineExceeded}, status: http.StatusServiceUnavailable, success: false, message: "Server is unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{DisableStartupMessage: true})
			app.Get("/health-check", server.NewHealthChecker(tt.pinger, "1.0.0").Handler())

			res, err := app.Test(httptest.NewRequest(http.MethodGet, "/health-check", nil), -1)
			require.NoError(t, err)
			defer res.Body.Close()
			assert.Equal(t, tt.status, res.StatusCode)

			var env envelope
			require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
			assert.Equal(t, tt.success, env.Success)
			assert.Equal(t, tt.message, env.Message)

			var health server.HealthResponse
			require.NoError(t, json.Unmarshal(env.Data, &health))
			assert.Equal(t, strings.TrimPrefix(tt.message, "Server is "), health.Status)
			assert.Equal(t, "1.0.0", health.Version)
		})
	}
}
