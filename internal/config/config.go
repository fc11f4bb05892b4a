// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Loading layers defaults, an optional YAML file and COUNTERPICK_ env vars.
// - Errors wrap this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// OpenDota client.
	OpenDotaBaseURL           string `koanf:"opendota_base_url" validate:"required,url"`
	OpenDotaAPIKey            string `koanf:"opendota_api_key"`
	OpenDotaTimeoutMS         int    `koanf:"opendota_timeout_ms" validate:"min=100"`
	OpenDotaRetries           int    `koanf:"opendota_retries" validate:"min=0,max=10"`
	OpenDotaRetryBaseMS       int    `koanf:"opendota_retry_base_ms" validate:"min=1"`
	OpenDotaRatePerMinute     int    `koanf:"opendota_rate_per_minute" validate:"min=0"`
	OpenDotaBreakerFailures   int    `koanf:"opendota_breaker_failures" validate:"min=1"`
	OpenDotaBreakerCooldownMS int    `koanf:"opendota_breaker_cooldown_ms" validate:"min=1"`

	// MetadataTTLMinutes is how long a metadata snapshot stays fresh.
	MetadataTTLMinutes int `koanf:"metadata_ttl_minutes" validate:"min=1"`

	// Per-call timeouts.
	MetadataFetchTimeoutMS int `koanf:"metadata_fetch_timeout_ms" validate:"min=1"`
	PopularityTimeoutMS    int `koanf:"popularity_timeout_ms" validate:"min=1"`
	ExplorerTimeoutMS      int `koanf:"explorer_timeout_ms" validate:"min=1"`
	HealthTimeoutMS        int `koanf:"health_timeout_ms" validate:"min=1"`

	// Rule table overrides. Empty means the embedded defaults.
	HeroTagsFile  string `koanf:"hero_tags_file" validate:"omitempty,file"`
	TagRulesFile  string `koanf:"tag_rules_file" validate:"omitempty,file"`
	TagBoostsFile string `koanf:"tag_boosts_file" validate:"omitempty,file"`

	// DefaultTop and MaxTop shape GET /recommend?top.
	DefaultTop int `koanf:"default_top" validate:"min=1,ltefield=MaxTop"`
	MaxTop     int `koanf:"max_top" validate:"min=1,max=500"`

	// RateLimitPerMinute caps requests per client IP; 0 disables the limit.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute" validate:"min=0"`

	// CORSAllowedOrigins lists allowed origins; empty allows any.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// GzipEnabled compresses responses.
	GzipEnabled bool `koanf:"gzip_enabled"`
}

// New creates a Config with defaults. The context is accepted first to
// follow the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                  "info",
		LogFormat:                 "text",
		Addr:                      ":9080",
		OpenDotaBaseURL:           "https://api.opendota.com/api",
		OpenDotaTimeoutMS:         15_000,
		OpenDotaRetries:           2,
		OpenDotaRetryBaseMS:       250,
		OpenDotaRatePerMinute:     60,
		OpenDotaBreakerFailures:   5,
		OpenDotaBreakerCooldownMS: 30_000,
		MetadataTTLMinutes:        30,
		MetadataFetchTimeoutMS:    10_000,
		PopularityTimeoutMS:       5_000,
		ExplorerTimeoutMS:         15_000,
		HealthTimeoutMS:           5_000,
		DefaultTop:                6,
		MaxTop:                    50,
		RateLimitPerMinute:        120,
		GzipEnabled:               true,
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// OpenDotaTimeout is the per-attempt request timeout.
func (c *Config) OpenDotaTimeout() time.Duration { return ms(c.OpenDotaTimeoutMS) }

// OpenDotaRetryBase is the first backoff delay.
func (c *Config) OpenDotaRetryBase() time.Duration { return ms(c.OpenDotaRetryBaseMS) }

// OpenDotaBreakerCooldown is how long the breaker stays open.
func (c *Config) OpenDotaBreakerCooldown() time.Duration { return ms(c.OpenDotaBreakerCooldownMS) }

// MetadataTTL is the snapshot freshness window.
func (c *Config) MetadataTTL() time.Duration {
	return time.Duration(c.MetadataTTLMinutes) * time.Minute
}

// MetadataFetchTimeout bounds each metadata dataset fetch.
func (c *Config) MetadataFetchTimeout() time.Duration { return ms(c.MetadataFetchTimeoutMS) }

// PopularityTimeout bounds the popularity fetch.
func (c *Config) PopularityTimeout() time.Duration { return ms(c.PopularityTimeoutMS) }

// ExplorerTimeout bounds explorer queries.
func (c *Config) ExplorerTimeout() time.Duration { return ms(c.ExplorerTimeoutMS) }

// HealthTimeout bounds the upstream health probe.
func (c *Config) HealthTimeout() time.Duration { return ms(c.HealthTimeoutMS) }
