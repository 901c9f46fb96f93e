// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, SAMEBOAT_ environment variables and command-line flags, in
// that order of increasing precedence.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// envPrefix namespaces the environment variables the loader reads.
// SAMEBOAT_DATABASE_URL maps to database.url and so on.
const envPrefix = "SAMEBOAT_"

// Config is the fully resolved service configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Session   SessionConfig   `koanf:"session"`
	Cookie    CookieConfig    `koanf:"cookie"`
	CORS      CORSConfig      `koanf:"cors"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type MetricsConfig struct {
	// Addr is the observability listen address; empty disables it.
	Addr string `koanf:"addr"`
}

type DatabaseConfig struct {
	URL string `koanf:"url"`
}

type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

type AuthConfig struct {
	// DevAutoCreate enables auto-creating accounts on login with the
	// stub password. Never enable outside dev/test.
	DevAutoCreate bool           `koanf:"devAutoCreate"`
	StubPassword  string         `koanf:"stubPassword"`
	Password      PasswordConfig `koanf:"password"`
}

type PasswordConfig struct {
	MinLength        int  `koanf:"minLength"`
	MaxLength        int  `koanf:"maxLength"`
	RequireUpper     bool `koanf:"requireUpper"`
	RequireLower     bool `koanf:"requireLower"`
	RequireDigit     bool `koanf:"requireDigit"`
	ForbidWhitespace bool `koanf:"forbidWhitespace"`
}

type RateLimitConfig struct {
	MaxAttempts int           `koanf:"maxAttempts"`
	Window      time.Duration `koanf:"window"`
}

type SessionConfig struct {
	TTL               time.Duration `koanf:"ttl"`
	PruneInterval     time.Duration `koanf:"pruneInterval"`
	PruneInitialDelay time.Duration `koanf:"pruneInitialDelay"`
}

type CookieConfig struct {
	Secure           bool     `koanf:"secure"`
	Domain           string   `koanf:"domain"`
	ValidApexDomains []string `koanf:"validApexDomains"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowedOrigins"`
}

// defaults are the baseline values applied before any other source.
func defaults() map[string]any {
	return map[string]any{
		"http.addr":                      ":8080",
		"metrics.addr":                   "127.0.0.1:9100",
		"database.url":                   "",
		"log.format":                     "json",
		"log.level":                      "info",
		"auth.devAutoCreate":             false,
		"auth.stubPassword":              "",
		"auth.password.minLength":        8,
		"auth.password.maxLength":        100,
		"auth.password.requireUpper":     true,
		"auth.password.requireLower":     true,
		"auth.password.requireDigit":     true,
		"auth.password.forbidWhitespace": true,
		"ratelimit.maxAttempts":          5,
		"ratelimit.window":               5 * time.Minute,
		"session.ttl":                    168 * time.Hour,
		"session.pruneInterval":          time.Hour,
		"session.pruneInitialDelay":      2 * time.Minute,
		"cookie.secure":                  true,
		"cookie.domain":                  "",
		"cookie.validApexDomains":        []string{},
		"cors.allowedOrigins":            []string{},
	}
}

// Load resolves the configuration. path may be empty (no file); flags may
// be nil (no flag overrides).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "file").
				With("path", path).
				Wrap(err)
		}
	}

	// SAMEBOAT_SESSION_TTL -> session.ttl. Key segments beyond the first
	// stay joined so camelCase keys keep working via the file/defaults.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.Replace(s, "_", ".", 1)
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	// Flag names use dashes (--http-addr); map the first dash to the key
	// delimiter so they land on the matching config key.
	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key := strings.Replace(f.Name, "-", ".", 1)
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http.addr is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if c.RateLimit.MaxAttempts <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("ratelimit.maxAttempts must be positive, got %d", c.RateLimit.MaxAttempts)
	}
	if c.RateLimit.Window <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("ratelimit.window must be positive, got %s", c.RateLimit.Window)
	}
	if c.Session.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session.ttl must be positive, got %s", c.Session.TTL)
	}
	if c.Session.PruneInterval <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session.pruneInterval must be positive, got %s", c.Session.PruneInterval)
	}
	if c.Auth.Password.MinLength <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.password.minLength must be positive, got %d", c.Auth.Password.MinLength)
	}
	if c.Auth.DevAutoCreate && c.Auth.StubPassword == "" {
		return oops.Code("CONFIG_INVALID").Errorf("auth.stubPassword is required when auth.devAutoCreate is enabled")
	}
	return nil
}
