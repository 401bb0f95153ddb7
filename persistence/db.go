// Package persistence opens the accounts database and applies the
// embedded schema migrations.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-accounts"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// goose keeps its base FS and dialect in package state
var gooseMu sync.Mutex

// Open returns a bun handle for the driver. sqlite uses the cgo free
// shim, postgres goes through pgx.
func Open(ctx context.Context, driver, dsn string) (*bun.DB, error) {
	var (
		sqldb *sql.DB
		err   error
		db    *bun.DB
	)

	switch driver {
	case DriverSQLite, "":
		sqldb, err = sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// sqlite serializes writers, a single connection keeps in-memory
		// databases alive and avoids SQLITE_BUSY under load
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, nil
}

// Migrate applies every pending migration
func Migrate(ctx context.Context, db *bun.DB, driver string) error {
	return withGoose(driver, func() error {
		return goose.UpContext(ctx, db.DB, ".")
	})
}

// Rollback reverts the latest migration
func Rollback(ctx context.Context, db *bun.DB, driver string) error {
	return withGoose(driver, func() error {
		return goose.DownContext(ctx, db.DB, ".")
	})
}

// Version returns the current schema version
func Version(ctx context.Context, db *bun.DB, driver string) (int64, error) {
	var version int64
	err := withGoose(driver, func() error {
		var err error
		version, err = goose.GetDBVersionContext(ctx, db.DB)
		return err
	})
	return version, err
}

func withGoose(driver string, fn func() error) error {
	migrations, err := accounts.MigrationsDir()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(gooseDialect(driver)); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	return fn()
}

func gooseDialect(driver string) string {
	if driver == DriverPostgres {
		return "postgres"
	}
	return "sqlite3"
}

// QueryLogger receives executed statements
type QueryLogger interface {
	Debug(msg string, args ...any)
}

type queryHook struct {
	logger QueryLogger
}

func (h queryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h queryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	args := []any{
		"sql", event.Query,
		"duration", time.Since(event.StartTime).String(),
	}
	if event.Err != nil {
		args = append(args, "error", event.Err)
	}
	h.logger.Debug("query", args...)
}

// LogQueries logs every statement run through db
func LogQueries(db *bun.DB, logger QueryLogger) {
	if db == nil || logger == nil {
		return
	}
	db.AddQueryHook(queryHook{logger: logger})
}
