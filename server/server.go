package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
)

// Options configures the server
type Options struct {
	Config   *config.Config
	DB       *bun.DB
	Loggers  LoggerProvider
	Registry *prometheus.Registry
	Version  string
}

// Server is the HTTP front of the accounts service
type Server struct {
	app      *fiber.App
	cfg      *config.Config
	services *Services
	metrics  *Metrics
	logger   accounts.Logger
}

func New(opts Options) (*Server, error) {
	loggers := opts.Loggers
	if loggers == nil {
		loggers = func(string) accounts.Logger { return nil }
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := NewMetrics(reg)

	services, err := NewServices(opts.Config, opts.DB, loggers, metrics.ActivitySink(loggers("activity")))
	if err != nil {
		return nil, err
	}

	logger := loggers("http")
	app := fiber.New(fiber.Config{
		AppName:               "accounts",
		DisableStartupMessage: true,
		ErrorHandler:          accounts.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(opts.Config.CORS.AllowedOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(metrics.Middleware())
	app.Use(requestLogger(logger))

	health := NewHealthChecker(services.Repos, opts.Version)
	app.Get("/health-check", health.Handler())

	if opts.Config.Server.MetricsEnabled() {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	controller := accounts.NewController(services.Auth, services.Users, services.Guard).
		WithLogger(loggers("http:controller"))
	controller.RegisterRoutes(app.Group(opts.Config.Server.APIPrefix))

	app.Use(accounts.NotFoundHandler)

	return &Server{
		app:      app,
		cfg:      opts.Config,
		services: services,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// App returns the fiber application
func (s *Server) App() *fiber.App {
	return s.app
}

// Services returns the wired account components
func (s *Server) Services() *Services {
	return s.services
}

// Run serves until the context is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	if s.logger != nil {
		s.logger.Info("server listening", "addr", s.cfg.Server.Addr)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.logger != nil {
		s.logger.Info("server shutting down", "timeout", s.cfg.ShutdownTimeout())
	}
	return s.app.ShutdownWithTimeout(s.cfg.ShutdownTimeout())
}

// errorStatus matches the status the error handler will answer with
func errorStatus(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return accounts.StatusCode(err)
}

func requestLogger(logger accounts.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if logger == nil {
			return err
		}

		status := c.Response().StatusCode()
		if err != nil {
			status = errorStatus(err)
		}

		logger.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start).String(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return err
	}
}
