package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/turtacn/mechstereo/pkg/errors"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "MECHSTEREO"

// envKeys lists every key that may be set from the environment alone.  Viper
// only consults the environment for keys it already knows about, so keys
// absent from the config file must be bound explicitly.
var envKeys = []string{
	"log.level", "log.format", "log.output_paths",
	"expansion.workers", "expansion.max_attempts",
	"expansion.remove_enantiomer_duplicates", "expansion.fill_smiles",
	"oracle.command", "oracle.timeout", "oracle.env",
	"redis.enabled", "redis.mode", "redis.addr", "redis.master_name",
	"redis.sentinel_addrs", "redis.cluster_addrs", "redis.username",
	"redis.password", "redis.db", "redis.pool_size", "redis.key_prefix", "redis.ttl",
	"kafka.enabled", "kafka.brokers", "kafka.topic", "kafka.acks",
	"kafka.compression", "kafka.sasl_mechanism", "kafka.sasl_username", "kafka.sasl_password",
	"minio.enabled", "minio.endpoint", "minio.access_key_id", "minio.secret_access_key",
	"minio.use_ssl", "minio.region", "minio.bucket", "minio.prefix", "minio.retention_days",
	"metrics.enabled", "metrics.namespace", "metrics.textfile",
}

// newViper builds a Viper instance with the standard settings: YAML file
// type, MECHSTEREO_ env prefix and a key replacer that maps "." to "_" so
// that nested keys like "redis.addr" resolve to "MECHSTEREO_REDIS_ADDR".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the YAML file at configPath, merges any MECHSTEREO_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrCodeNotFound, "config file not found").WithDetail(configPath)
		}
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to read config file").WithDetail(configPath)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from MECHSTEREO_* environment variables alone.
//
// Environment variable naming convention:
//
//	MECHSTEREO_<SECTION>_<FIELD>   e.g.  MECHSTEREO_REDIS_ADDR, MECHSTEREO_ORACLE_COMMAND
//
// List values are comma separated.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal configuration")
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
