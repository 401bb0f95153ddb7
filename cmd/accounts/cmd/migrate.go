package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-accounts/persistence"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrations(cmd, func(m migrationRunner) error {
			if err := persistence.Migrate(cmd.Context(), m.db, m.driver); err != nil {
				return err
			}
			return m.printVersion(cmd)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrations(cmd, func(m migrationRunner) error {
			if err := persistence.Rollback(cmd.Context(), m.db, m.driver); err != nil {
				return err
			}
			return m.printVersion(cmd)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrations(cmd, func(m migrationRunner) error {
			return m.printVersion(cmd)
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

type migrationRunner struct {
	db     *bun.DB
	driver string
}

func (m migrationRunner) printVersion(cmd *cobra.Command) error {
	version, err := persistence.Version(cmd.Context(), m.db, m.driver)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
	return nil
}

func withMigrations(cmd *cobra.Command, fn func(m migrationRunner) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	loggers := loggerProvider(newLogger(cfg.Log))
	db, err := openDatabase(cmd.Context(), cfg, loggers)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(migrationRunner{db: db, driver: cfg.Database.Driver})
}
