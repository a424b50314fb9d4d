// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and the environment on top of the defaults.
// - External errors must be wrapped with this package's sentinels.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// ReferenceCacheTTLMS is how long a client's reference collections stay
	// cached. Zero disables the cache.
	ReferenceCacheTTLMS int `koanf:"reference_cache_ttl_ms"`

	// NameFallback enables name matching for candidates without a profile ID.
	NameFallback bool `koanf:"name_fallback"`

	// RecentDefaultLimit and RecentMaxLimit bound GET /invites/recent?limit.
	RecentDefaultLimit int `koanf:"recent_default_limit"`
	RecentMaxLimit     int `koanf:"recent_max_limit"`

	// MaxCandidates caps the size of one filter request.
	MaxCandidates int `koanf:"max_candidates"`

	// DBBusyRetries is the number of write attempts while SQLite is busy.
	DBBusyRetries int `koanf:"db_busy_retries"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		DBPath:              "growthdesk.db",
		ReferenceCacheTTLMS: 30_000,
		NameFallback:        true,
		RecentDefaultLimit:  100,
		RecentMaxLimit:      1000,
		MaxCandidates:       50_000,
		DBBusyRetries:       3,
	}
}

// ReferenceCacheTTL returns ReferenceCacheTTLMS as a duration.
func (c *Config) ReferenceCacheTTL() time.Duration {
	return time.Duration(c.ReferenceCacheTTLMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.RecentDefaultLimit <= 0:
		return fmt.Errorf("%w: recent_default_limit must be positive", ErrInvalidConfig)
	case c.RecentMaxLimit < c.RecentDefaultLimit:
		return fmt.Errorf("%w: recent_max_limit must be at least recent_default_limit", ErrInvalidConfig)
	case c.MaxCandidates <= 0:
		return fmt.Errorf("%w: max_candidates must be positive", ErrInvalidConfig)
	case c.ReferenceCacheTTLMS < 0:
		return fmt.Errorf("%w: reference_cache_ttl_ms must not be negative", ErrInvalidConfig)
	case c.DBBusyRetries < 1:
		return fmt.Errorf("%w: db_busy_retries must be at least 1", ErrInvalidConfig)
	}
	return nil
}
