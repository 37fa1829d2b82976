package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/mechstereo/pkg/errors"
)

const validConfigYAML = `
log:
  level: debug
  format: console
expansion:
  workers: 4
  max_attempts: 5
  remove_enantiomer_duplicates: true
oracle:
  command: ["python3", "-m", "stereo_oracle"]
  timeout: 45s
redis:
  enabled: true
  addr: "cache:6379"
  ttl: 12h
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  topic: "stereo.results"
minio:
  enabled: true
  endpoint: "minio:9000"
  bucket: "artifacts"
  retention_days: 30
metrics:
  enabled: true
  textfile: "/var/lib/node_exporter/mechstereo.prom"
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Expansion.Workers)
	assert.Equal(t, 5, cfg.Expansion.MaxAttempts)
	assert.True(t, cfg.Expansion.RemoveEnantiomerDuplicates)
	assert.Equal(t, []string{"python3", "-m", "stereo_oracle"}, cfg.Oracle.Command)
	assert.Equal(t, 45*time.Second, cfg.Oracle.Timeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 12*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "stereo.results", cfg.Kafka.Topic)
	assert.Equal(t, "artifacts", cfg.MinIO.Bucket)
	assert.Equal(t, 30, cfg.MinIO.RetentionDays)
	assert.Equal(t, DefaultMetricsNamespace, cfg.Metrics.Namespace)
	assert.Equal(t, "/var/lib/node_exporter/mechstereo.prom", cfg.Metrics.Textfile)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "expansion: ["))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "log:\n  level: loud\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("MECHSTEREO_EXPANSION_WORKERS", "9")
	t.Setenv("MECHSTEREO_REDIS_ADDR", "other:6380")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Expansion.Workers)
	assert.Equal(t, "other:6380", cfg.Redis.Addr)
	assert.Equal(t, 5, cfg.Expansion.MaxAttempts)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MECHSTEREO_ORACLE_COMMAND", "stereo-oracle,--quiet")
	t.Setenv("MECHSTEREO_ORACLE_TIMEOUT", "2m")
	t.Setenv("MECHSTEREO_KAFKA_ENABLED", "true")
	t.Setenv("MECHSTEREO_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("MECHSTEREO_EXPANSION_REMOVE_ENANTIOMER_DUPLICATES", "true")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"stereo-oracle", "--quiet"}, cfg.Oracle.Command)
	assert.Equal(t, 2*time.Minute, cfg.Oracle.Timeout)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Expansion.RemoveEnantiomerDuplicates)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkers(), cfg.Expansion.Workers)
	assert.False(t, cfg.Redis.Enabled)
	assert.Empty(t, cfg.Oracle.Command)
}
