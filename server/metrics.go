// Package server assembles the fiber application serving the accounts API.
package server

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
)

const metricsNamespace = "accounts"

// Metrics holds the prometheus collectors of the service
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuthEvents      *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthEvents: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "activity_events_total",
				Help:      "Total account activity events by type",
			},
			[]string{"event"},
		),
	}
}

// Middleware records request counts and latency per matched route
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = accounts.StatusCode(err)
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "/" {
			route = r.Path
		}

		m.RequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// ActivitySink counts activity events and logs them as audit records
func (m *Metrics) ActivitySink(logger accounts.Logger) accounts.ActivitySink {
	return accounts.ActivitySinkFunc(func(ctx context.Context, event accounts.ActivityEvent) error {
		m.AuthEvents.WithLabelValues(string(event.EventType)).Inc()
		if logger == nil {
			return nil
		}

		record := activitymap.Normalize(event)
		args := []any{
			"verb", record.Verb,
			"actor_id", record.ActorID,
			"object_id", record.ObjectID,
		}
		if len(record.Metadata) > 0 {
			args = append(args, "metadata", print.MaybePrettyJSON(record.Metadata))
		}
		logger.Info("activity", args...)
		return nil
	})
}
