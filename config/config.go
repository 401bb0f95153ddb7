// Package config provides configuration loading for the accounts service.
package config

import (
	"strings"
	"time"

	"github.com/goliatone/go-accounts"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	LogFormatPretty = "pretty"
	LogFormatJSON   = "json"
)

// Config is the root configuration
type Config struct {
	Env        string           `json:"env" yaml:"env" mapstructure:"env" validate:"oneof=development production test"`
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
	Database   DatabaseConfig   `json:"database" yaml:"database" mapstructure:"database"`
	Auth       AuthConfig       `json:"auth" yaml:"auth" mapstructure:"auth"`
	CORS       CORSConfig       `json:"cors" yaml:"cors" mapstructure:"cors"`
	RateLimit  RateLimitConfig  `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`
	Pagination PaginationConfig `json:"pagination" yaml:"pagination" mapstructure:"pagination"`
	Users      UsersConfig      `json:"users" yaml:"users" mapstructure:"users"`
}

type ServerConfig struct {
	Addr            string `json:"addr" yaml:"addr" mapstructure:"addr" validate:"required"`
	ShutdownTimeout string `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"required,duration_expr"`
	APIPrefix       string `json:"api_prefix" yaml:"api_prefix" mapstructure:"api_prefix" validate:"required,startswith=/"`
	Metrics         *bool  `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"oneof=pretty json"`
}

type DatabaseConfig struct {
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `json:"dsn" yaml:"dsn" mapstructure:"dsn" validate:"required"`
	// AutoMigrate runs pending migrations when the server starts
	AutoMigrate *bool `json:"auto_migrate" yaml:"auto_migrate" mapstructure:"auto_migrate"`
	Debug       bool  `json:"debug" yaml:"debug" mapstructure:"debug"`
}

type AuthConfig struct {
	JWTSecret      string   `json:"jwt_secret" yaml:"jwt_secret" mapstructure:"jwt_secret"`
	JWTExpiresIn   string   `json:"jwt_expires_in" yaml:"jwt_expires_in" mapstructure:"jwt_expires_in" validate:"required,duration_expr"`
	SaltWorkFactor int      `json:"salt_work_factor" yaml:"salt_work_factor" mapstructure:"salt_work_factor" validate:"min=4,max=31"`
	Issuer         string   `json:"issuer" yaml:"issuer" mapstructure:"issuer"`
	Audience       []string `json:"audience" yaml:"audience" mapstructure:"audience"`
	ContextKey     string   `json:"context_key" yaml:"context_key" mapstructure:"context_key"`
}

type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// RateLimitConfig values are carried for deployments that front the
// service with a limiter, the service itself does not enforce them.
type RateLimitConfig struct {
	Window string `json:"window" yaml:"window" mapstructure:"window" validate:"omitempty,duration_expr"`
	Max    int    `json:"max" yaml:"max" mapstructure:"max" validate:"min=0"`
}

type PaginationConfig struct {
	DefaultLimit int `json:"default_limit" yaml:"default_limit" mapstructure:"default_limit" validate:"min=1,ltefield=MaxLimit"`
	MaxLimit     int `json:"max_limit" yaml:"max_limit" mapstructure:"max_limit" validate:"min=1"`
}

type UsersConfig struct {
	// DeterministicIDs derives user ids from their email address
	DeterministicIDs bool `json:"deterministic_ids" yaml:"deterministic_ids" mapstructure:"deterministic_ids"`
}

var _ accounts.Config = (*Config)(nil)

// SetDefaults applies default values for optional fields
func (c *Config) SetDefaults() {
	if c.Env == "" {
		c.Env = EnvDevelopment
	}

	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:3000"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Server.APIPrefix == "" {
		c.Server.APIPrefix = "/api"
	}
	if c.Server.Metrics == nil {
		c.Server.Metrics = boolPtr(true)
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Format == "" {
		c.Log.Format = LogFormatPretty
	}
	c.Log.Format = strings.ToLower(c.Log.Format)

	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.DSN == "" && c.Database.Driver == DriverSQLite {
		c.Database.DSN = "file:accounts.db?cache=shared"
	}
	if c.Database.AutoMigrate == nil {
		c.Database.AutoMigrate = boolPtr(true)
	}

	if c.Auth.JWTExpiresIn == "" {
		c.Auth.JWTExpiresIn = "7d"
	}
	if c.Auth.SaltWorkFactor == 0 {
		c.Auth.SaltWorkFactor = 12
		if c.Env == EnvDevelopment {
			c.Auth.SaltWorkFactor = 10
		}
	}
	if c.Auth.ContextKey == "" {
		c.Auth.ContextKey = accounts.DefaultContextKey
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}

	if c.RateLimit.Window == "" {
		c.RateLimit.Window = "15m"
	}
	if c.RateLimit.Max == 0 {
		c.RateLimit.Max = 100
	}

	if c.Pagination.MaxLimit == 0 {
		c.Pagination.MaxLimit = accounts.MaxPageLimit
	}
	if c.Pagination.DefaultLimit == 0 {
		c.Pagination.DefaultLimit = accounts.DefaultPageLimit
	}
}

func boolPtr(b bool) *bool {
	return &b
}

// MetricsEnabled reports whether /metrics is exposed, true unless disabled
func (c ServerConfig) MetricsEnabled() bool {
	return c.Metrics == nil || *c.Metrics
}

// AutoMigrateEnabled reports whether pending migrations run on start
func (c DatabaseConfig) AutoMigrateEnabled() bool {
	return c.AutoMigrate == nil || *c.AutoMigrate
}

// ShutdownTimeout returns the parsed graceful shutdown timeout
func (c *Config) ShutdownTimeout() time.Duration {
	d, err := accounts.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

func (c *Config) GetSigningKey() string {
	return c.Auth.JWTSecret
}

func (c *Config) GetTokenExpiration() string {
	return c.Auth.JWTExpiresIn
}

func (c *Config) GetIssuer() string {
	return c.Auth.Issuer
}

func (c *Config) GetAudience() []string {
	return c.Auth.Audience
}

func (c *Config) GetContextKey() string {
	return c.Auth.ContextKey
}

func (c *Config) GetSaltWorkFactor() int {
	return c.Auth.SaltWorkFactor
}

// Masked returns a copy safe to print
func (c Config) Masked() Config {
	if c.Auth.JWTSecret != "" {
		c.Auth.JWTSecret = "********"
	}
	if c.Database.Driver == DriverPostgres && c.Database.DSN != "" {
		c.Database.DSN = maskDSN(c.Database.DSN)
	}
	return c
}

func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || scheme+3 > at {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		creds = creds[:colon] + ":********"
	}
	return dsn[:scheme+3] + creds + dsn[at:]
}
