// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

// Package config loads keyrack configuration from defaults, an optional YAML
// file, and command-line flags, in that order of precedence (flags win).
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/keyrack/keyrack/internal/auth"
)

// Config holds the keyrack runtime configuration.
type Config struct {
	Log   LogConfig   `koanf:"log"`
	Token TokenConfig `koanf:"token"`
	Admin AdminConfig `koanf:"admin"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Format string `koanf:"format"` // "json" or "text"
	Level  string `koanf:"level"`  // debug, info, warn, error
}

// TokenConfig configures session token issuance.
type TokenConfig struct {
	Length int `koanf:"length"`
}

// AdminConfig describes the bootstrap admin seeded before any signup can
// succeed.
type AdminConfig struct {
	Name     string `koanf:"name"`
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log:   LogConfig{Format: "json", Level: "info"},
		Token: TokenConfig{Length: auth.DefaultTokenLength},
		Admin: AdminConfig{Name: "Administrator", Email: "admin@localhost"},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if non-empty), then the given flag set (if non-nil). Flag names map onto
// config keys by replacing dashes with dots: --log-format sets log.format.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "."), value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.Log.Format).
			Errorf("log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if c.Token.Length <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("token_length", c.Token.Length).
			Errorf("token length must be positive")
	}
	if c.Admin.Email != "" {
		// Errorf, not Wrap: wrapping the validation error would surface its
		// AUTH_INVALID_EMAIL code instead of CONFIG_INVALID.
		if err := auth.ValidateEmail(c.Admin.Email); err != nil {
			return oops.Code("CONFIG_INVALID").
				With("admin_email", c.Admin.Email).
				Errorf("invalid admin email: %v", err)
		}
	}
	return nil
}
