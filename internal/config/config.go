// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

// Package config loads and validates the Waypost service configuration
// from an optional YAML file, command-line flags, and the environment.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Environment values.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Defaults.
const (
	DefaultListenAddr  = ":8080"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultLogFormat   = "json"
	DefaultTokenTTL    = 7 * 24 * time.Hour
	DefaultBcryptCost  = 10
)

// Auth holds the authentication core configuration.
type Auth struct {
	// TokenSecret signs session tokens. Required in production; in
	// development a missing secret is replaced by an ephemeral one and
	// loudly logged.
	TokenSecret string `koanf:"token_secret"`

	TokenTTL   time.Duration `koanf:"token_ttl"`
	BcryptCost int           `koanf:"bcrypt_cost"`
}

// Config is the full service configuration.
type Config struct {
	Environment string `koanf:"environment"`
	ListenAddr  string `koanf:"listen_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	LogFormat   string `koanf:"log_format"`
	DatabaseURL string `koanf:"database_url"`
	Auth        Auth   `koanf:"auth"`
}

// Load builds the configuration. Precedence, lowest to highest:
// built-in defaults, YAML file (if path is non-empty), command-line
// flags. DATABASE_URL and WAYPOST_TOKEN_SECRET environment variables
// fill their fields when the other sources leave them empty, so secrets
// can stay out of files and argv.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := &Config{
		Environment: EnvDevelopment,
		ListenAddr:  DefaultListenAddr,
		MetricsAddr: DefaultMetricsAddr,
		LogFormat:   DefaultLogFormat,
		Auth: Auth{
			TokenTTL:   DefaultTokenTTL,
			BcryptCost: DefaultBcryptCost,
		},
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.Auth.TokenSecret == "" {
		cfg.Auth.TokenSecret = os.Getenv("WAYPOST_TOKEN_SECRET")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise fail at runtime.
// A missing token secret in production is a fatal configuration error:
// falling back to a well-known default would let anyone forge sessions.
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return oops.Code("CONFIG_INVALID").
			With("environment", c.Environment).
			Errorf("environment must be %q or %q", EnvDevelopment, EnvProduction)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			Errorf("log_format must be 'json' or 'text'")
	}
	if c.Environment == EnvProduction && c.Auth.TokenSecret == "" {
		return oops.Code("CONFIG_MISSING_SECRET").
			Errorf("auth.token_secret is required in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("token_ttl", c.Auth.TokenTTL).
			Errorf("auth.token_ttl must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
