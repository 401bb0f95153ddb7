// Package cmd provides the CLI commands of the accounts service.
package cmd

import (
	"fmt"
	"os"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
)

// Version is set at build time
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "accounts",
	Short: "User account API with JWT authentication",
	Long: `accounts serves a REST API to authenticate users and manage their
accounts, backed by sqlite or postgres.

Configuration:
  Config is loaded from accounts.yaml in the current directory,
  $HOME/.accounts/, or /etc/accounts/.

  Environment variables override config values with the ACCOUNTS_ prefix.
  Example: ACCOUNTS_AUTH_JWT_SECRET=change-me

Commands:
  serve        Start the HTTP server
  migrate      Apply or roll back database migrations
  user create  Create an account, e.g. the first admin
  config show  Print the effective configuration
  version      Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./accounts.yaml)")
}

func loadConfig() (*config.Config, error) {
	return config.Load(config.NewViper(cfgFile))
}

func newLogger(cfg config.LogConfig) *glog.BaseLogger {
	return glog.NewLogger(
		glog.WithLoggerType(loggerType(cfg.Format)),
		glog.WithLevel(logLevel(cfg.Level)),
		glog.WithName("accounts"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)
}

var logLevels = map[string]string{
	"trace": glog.Trace,
	"debug": glog.Debug,
	"info":  glog.Info,
	"warn":  glog.Warn,
	"error": glog.Error,
}

func logLevel(level string) string {
	if l, ok := logLevels[strings.ToLower(level)]; ok {
		return l
	}
	return glog.DefaultLogLevel
}

func loggerType(format string) string {
	if strings.EqualFold(format, config.LogFormatJSON) {
		return glog.LoggerTypeJSON
	}
	return glog.LoggerTypePretty
}

func loggerProvider(base *glog.BaseLogger) func(name string) accounts.Logger {
	return func(name string) accounts.Logger {
		return base.GetLogger(name)
	}
}
