package server

import (
	"context"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-accounts"
)

// Pinger checks a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the JSON body of the health check endpoint
type HealthResponse struct {
	Status    string       `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Uptime    float64      `json:"uptime"`
	Database  string       `json:"database"`
	Memory    MemoryStatus `json:"memory"`
	Version   string       `json:"version,omitempty"`
}

// MemoryStatus reports the Go runtime memory usage in bytes
type MemoryStatus struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"totalAlloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"numGC"`
}

// HealthChecker reports service health
type HealthChecker struct {
	db      Pinger
	started time.Time
	version string
	timeout time.Duration
}

func NewHealthChecker(db Pinger, version string) *HealthChecker {
	return &HealthChecker{
		db:      db,
		started: time.Now(),
		version: version,
		timeout: 2 * time.Second,
	}
}

// Check performs the health checks
func (h *HealthChecker) Check(ctx context.Context) HealthResponse {
	res := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Seconds(),
		Database:  "connected",
		Version:   h.version,
	}

	if h.db == nil {
		res.Database = "not configured"
		res.Status = "unhealthy"
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		if err := h.db.Ping(pingCtx); err != nil {
			res.Database = "disconnected"
			res.Status = "unhealthy"
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	res.Memory = MemoryStatus{
		Alloc:      ms.Alloc,
		TotalAlloc: ms.TotalAlloc,
		Sys:        ms.Sys,
		NumGC:      ms.NumGC,
	}

	return res
}

// Handler serves the health check wrapped in the API envelope, 503 when unhealthy
func (h *HealthChecker) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := h.Check(c.UserContext())
		status := fiber.StatusOK
		if res.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(accounts.Envelope{
			Success: res.Status == "healthy",
			Message: "Server is " + res.Status,
			Data:    res,
		})
	}
}
