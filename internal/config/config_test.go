package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, `
server:
  address: ":9090"
  debug: true
storage:
  bucket: tf-modules
  region: eu-west-1
  endpoint: http://localhost:9000
telemetry:
  metricsEnabled: true
`)

	cfg, err := LoadConfig(WithConfigPath(path))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.GetAddress())
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "tf-modules", cfg.Storage.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Storage.Region)
	assert.Equal(t, "http://localhost:9000", cfg.Storage.Endpoint)
	assert.True(t, cfg.Telemetry.MetricsEnabled)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, `
storage:
  bucket: tf-modules
`)

	cfg, err := LoadConfig(WithConfigPath(path))
	require.NoError(t, err)

	assert.Equal(t, DefaultAddress, cfg.GetAddress())
	assert.False(t, cfg.Server.Debug)
	assert.False(t, cfg.Telemetry.MetricsEnabled)
}

func TestLoadConfigMissingBucket(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, `
server:
  address: ":8080"
`)

	_, err := LoadConfig(WithConfigPath(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.bucket is required")
}

func TestLoadConfigBadAddress(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, `
server:
  address: "8080"
storage:
  bucket: tf-modules
`)

	_, err := LoadConfig(WithConfigPath(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host:port")
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(WithConfigPath(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "storage: [not a mapping")

	_, err := LoadConfig(WithConfigPath(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML config")
}

func TestGetAPIKeyFromFile(t *testing.T) {
	t.Parallel()

	keyPath := filepath.Join(t.TempDir(), "api-key")
	require.NoError(t, os.WriteFile(keyPath, []byte("s3cret\n"), 0o600))

	cfg := &Config{Auth: AuthConfig{APIKeyFile: keyPath}}

	key, err := cfg.GetAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", key)
}

func TestGetAPIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "env-s3cret")

	cfg := &Config{}

	key, err := cfg.GetAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "env-s3cret", key)
}

func TestGetAPIKeyUnconfigured(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "")

	cfg := &Config{}

	_, err := cfg.GetAPIKey()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key configured")
}

func TestGetSecretKeyFromFile(t *testing.T) {
	t.Parallel()

	keyPath := filepath.Join(t.TempDir(), "secret-key")
	require.NoError(t, os.WriteFile(keyPath, []byte("  sk-value  \n"), 0o600))

	cfg := &Config{Storage: StorageConfig{SecretKeyFile: keyPath}}

	key, err := cfg.GetSecretKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-value", key)
}

func TestGetSecretKeyUnconfigured(t *testing.T) {
	t.Setenv(SecretKeyEnvVar, "")

	cfg := &Config{}

	key, err := cfg.GetSecretKey()
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestAccessKeyWithoutSecretKeyRejected(t *testing.T) {
	t.Setenv(SecretKeyEnvVar, "")

	path := writeConfigFile(t, `
storage:
  bucket: tf-modules
  accessKey: AKIAEXAMPLE
`)

	_, err := LoadConfig(WithConfigPath(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no secret key is configured")
}
