package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName = "accounts"
	envPrefix  = "ACCOUNTS"
)

// envKeys lists the nested keys that can be overridden from the
// environment, e.g. ACCOUNTS_AUTH_JWT_SECRET overrides auth.jwt_secret
var envKeys = []string{
	"env",
	"server.addr",
	"server.shutdown_timeout",
	"server.api_prefix",
	"server.metrics",
	"log.level",
	"log.format",
	"database.driver",
	"database.dsn",
	"database.auto_migrate",
	"database.debug",
	"auth.jwt_secret",
	"auth.jwt_expires_in",
	"auth.salt_work_factor",
	"auth.issuer",
	"auth.audience",
	"auth.context_key",
	"cors.allowed_origins",
	"rate_limit.window",
	"rate_limit.max",
	"pagination.default_limit",
	"pagination.max_limit",
	"users.deterministic_ids",
}

// NewViper returns a viper instance set up with the config file and the
// ACCOUNTS_ environment overrides. When configFile is empty the standard
// locations are searched for accounts.yaml.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		v.SetConfigFile(found)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	return v
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".accounts"),
		"/etc/accounts",
	}
	return findConfigFileInPaths(paths)
}

func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, configName+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Load reads the configuration, applies defaults and validates it.
// A missing config file is not an error, env vars alone can configure
// the service.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
