package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/persistence"
	"github.com/goliatone/go-accounts/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the accounts HTTP server.

Pending migrations are applied first unless database.auto_migrate is false.
The server stops gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	base := newLogger(cfg.Log)
	loggers := loggerProvider(base)
	logger := loggers("serve")

	if cfg.Auth.JWTSecret == "" {
		secret, err := ephemeralSecret()
		if err != nil {
			return err
		}
		cfg.Auth.JWTSecret = secret
		logger.Warn("auth.jwt_secret is empty, using an ephemeral secret. Tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg, loggers)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrateEnabled() {
		if err := persistence.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := server.New(server.Options{
		Config:   cfg,
		DB:       db,
		Loggers:  loggers,
		Registry: reg,
		Version:  Version,
	})
	if err != nil {
		return err
	}

	logger.Info("starting accounts", "version", Version, "env", cfg.Env, "driver", cfg.Database.Driver)
	return srv.Run(ctx)
}

func openDatabase(ctx context.Context, cfg *config.Config, loggers func(string) accounts.Logger) (*bun.DB, error) {
	db, err := persistence.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Debug {
		persistence.LogQueries(db, loggers("db"))
	}
	return db, nil
}

func ephemeralSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
