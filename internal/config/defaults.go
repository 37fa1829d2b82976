package config

import (
	"runtime"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMaxAttempts   = 3
	DefaultOracleTimeout = 30 * time.Second

	DefaultRedisAddr = "localhost:6379"

	DefaultKafkaBroker = "localhost:9092"

	DefaultMinIOEndpoint = "localhost:9000"

	DefaultMetricsNamespace = "mechstereo"
)

// DefaultWorkers is the expansion worker count used when none is configured.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// ApplyDefaults fills every zero-value field in cfg with its default.  Fields
// that have already been set are left unchanged so that explicit
// configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Expansion ─────────────────────────────────────────────────────────────
	if cfg.Expansion.Workers == 0 {
		cfg.Expansion.Workers = DefaultWorkers()
	}
	if cfg.Expansion.MaxAttempts == 0 {
		cfg.Expansion.MaxAttempts = DefaultMaxAttempts
	}

	// ── Oracle ────────────────────────────────────────────────────────────────
	if cfg.Oracle.Timeout == 0 {
		cfg.Oracle.Timeout = DefaultOracleTimeout
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Mode == "" {
		cfg.Redis.Mode = "standalone"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}
