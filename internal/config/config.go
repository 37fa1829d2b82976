// Package config defines the configuration of the mechstereo tool.  No I/O or
// parsing logic lives here, only plain data types and validation.
package config

import (
	"strings"

	"github.com/turtacn/mechstereo/internal/infrastructure/database/redis"
	"github.com/turtacn/mechstereo/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mechstereo/internal/infrastructure/oracle/subprocess"
	"github.com/turtacn/mechstereo/internal/infrastructure/storage/minio"
	"github.com/turtacn/mechstereo/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ExpansionConfig holds the expansion run parameters.
type ExpansionConfig struct {
	Workers                    int  `mapstructure:"workers"`
	MaxAttempts                int  `mapstructure:"max_attempts"`
	RemoveEnantiomerDuplicates bool `mapstructure:"remove_enantiomer_duplicates"`
	// FillSmiles asks the oracle for the SMILES of every rebuilt species.
	FillSmiles bool `mapstructure:"fill_smiles"`
}

// MetricsConfig holds the Prometheus textfile export parameters.
type MetricsConfig struct {
	Enabled     bool              `mapstructure:"enabled"`
	Namespace   string            `mapstructure:"namespace"`
	Textfile    string            `mapstructure:"textfile"`
	ConstLabels map[string]string `mapstructure:"const_labels"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.  Every infrastructure component
// reads its settings from the relevant sub-struct.
type Config struct {
	Log       logging.LogConfig    `mapstructure:"log"`
	Expansion ExpansionConfig      `mapstructure:"expansion"`
	Oracle    subprocess.Config    `mapstructure:"oracle"`
	Redis     redis.RedisConfig    `mapstructure:"redis"`
	Kafka     kafka.ProducerConfig `mapstructure:"kafka"`
	MinIO     minio.MinIOConfig    `mapstructure:"minio"`
	Metrics   MetricsConfig        `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// Sections that are disabled are not checked.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf(errors.ErrCodeValidation, "log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.Newf(errors.ErrCodeValidation, "log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Expansion.Workers < 1 {
		return errors.Newf(errors.ErrCodeValidation, "expansion.workers must be >= 1, got %d", c.Expansion.Workers)
	}
	if c.Expansion.MaxAttempts < 1 {
		return errors.Newf(errors.ErrCodeValidation, "expansion.max_attempts must be >= 1, got %d", c.Expansion.MaxAttempts)
	}
	if c.Oracle.Timeout < 0 {
		return errors.New(errors.ErrCodeValidation, "oracle.timeout must not be negative")
	}

	if c.Redis.Enabled {
		switch c.Redis.Mode {
		case "cluster":
			if len(c.Redis.ClusterAddrs) == 0 {
				return errors.New(errors.ErrCodeValidation, "redis.cluster_addrs is required in cluster mode")
			}
		case "sentinel":
			if c.Redis.MasterName == "" || len(c.Redis.SentinelAddrs) == 0 {
				return errors.New(errors.ErrCodeValidation, "redis.master_name and redis.sentinel_addrs are required in sentinel mode")
			}
		default:
			if c.Redis.Addr == "" {
				return errors.New(errors.ErrCodeValidation, "redis.addr is required")
			}
		}
		if c.Redis.DB < 0 {
			return errors.Newf(errors.ErrCodeValidation, "redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	if c.Kafka.Enabled {
		if err := kafka.ValidateProducerConfig(c.Kafka); err != nil {
			return errors.Wrap(err, errors.ErrCodeValidation, "kafka")
		}
	}

	if c.MinIO.Enabled && c.MinIO.Endpoint == "" {
		return errors.New(errors.ErrCodeValidation, "minio.endpoint is required")
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.New(errors.ErrCodeValidation, "metrics.namespace is required")
	}

	return nil
}
