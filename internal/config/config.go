// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file, and environment variables (highest priority wins).
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Import     ImportConfig     `koanf:"import"`
	Enrichment EnrichmentConfig `koanf:"enrichment"`
	Stats      StatsConfig      `koanf:"stats"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds DuckDB settings for the listen store.
type DatabaseConfig struct {
	// Path is the database file path. ":memory:" opens an in-memory store.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB's memory usage, e.g. "1GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB worker thread count; 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// ImportConfig holds import pipeline settings.
type ImportConfig struct {
	// MaxFileSizeBytes caps the accepted import file size.
	MaxFileSizeBytes int64 `koanf:"max_file_size_bytes"`

	// ErrorListCap limits how many per-record error messages an
	// ImportResult carries; the failed count stays exact beyond the cap.
	ErrorListCap int `koanf:"error_list_cap"`

	// DedupeToleranceSeconds is the listened_at window within which two
	// listens of the same track and artist count as duplicates.
	DedupeToleranceSeconds int64 `koanf:"dedupe_tolerance_seconds"`
}

// EnrichmentConfig holds settings for the best-effort metadata enrichment
// collaborator. Enrichment failures never fail an import.
type EnrichmentConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`

	// Timeout bounds one enrichment round trip.
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond paces calls to the collaborator.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// BreakerFailureThreshold is the consecutive-failure count that opens
	// the circuit breaker.
	BreakerFailureThreshold uint32 `koanf:"breaker_failure_threshold"`
}

// StatsConfig holds aggregation settings.
type StatsConfig struct {
	// RefreshDebounce coalesces bursts of new-scrobble notifications into
	// a single stats recompute (last request wins).
	RefreshDebounce time.Duration `koanf:"refresh_debounce"`
}

// SecurityConfig holds rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds log level and format settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for malformed values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Import.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("import.max_file_size_bytes must be positive, got %d", c.Import.MaxFileSizeBytes)
	}
	if c.Import.DedupeToleranceSeconds < 0 {
		return fmt.Errorf("import.dedupe_tolerance_seconds must not be negative, got %d", c.Import.DedupeToleranceSeconds)
	}
	if c.Enrichment.Enabled && c.Enrichment.BaseURL == "" {
		return fmt.Errorf("enrichment.base_url is required when enrichment is enabled")
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs <= 0 {
		return fmt.Errorf("security.rate_limit_reqs must be positive, got %d", c.Security.RateLimitReqs)
	}
	return nil
}
