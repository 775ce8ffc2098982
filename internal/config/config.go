// Package config provides configuration loading and management for the
// registry server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultAddress is the listen address used when none is configured
	DefaultAddress = ":8080"

	// APIKeyEnvVar is the environment variable fallback for the write API key
	APIKeyEnvVar = "TFREGISTRY_API_KEY"

	// SecretKeyEnvVar is the environment variable fallback for the store secret key
	SecretKeyEnvVar = "TFREGISTRY_STORAGE_SECRET_KEY"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
}

// ServerConfig defines the HTTP listener settings
type ServerConfig struct {
	// Address is the listen address in host:port form
	Address string `yaml:"address,omitempty"`

	// Debug enables verbose console logging
	Debug bool `yaml:"debug,omitempty"`
}

// StorageConfig defines the backing object store settings
type StorageConfig struct {
	// Bucket is the object store bucket holding module archives
	Bucket string `yaml:"bucket"`

	// Region is the bucket's region
	Region string `yaml:"region,omitempty"`

	// Endpoint overrides the store endpoint, for S3-compatible stores
	// such as MinIO
	Endpoint string `yaml:"endpoint,omitempty"`

	// AccessKey is the static access key ID. Leave empty to use the
	// ambient credential chain (instance profile, env, shared config).
	AccessKey string `yaml:"accessKey,omitempty"`

	// SecretKeyFile is the path to a file containing the secret access
	// key. The file should contain only the key with optional trailing
	// whitespace.
	SecretKeyFile string `yaml:"secretKeyFile,omitempty"`
}

// AuthConfig defines the shared-secret settings for write operations
type AuthConfig struct {
	// APIKeyFile is the path to a file containing the API key
	APIKeyFile string `yaml:"apiKeyFile,omitempty"`
}

// TelemetryConfig defines metrics settings
type TelemetryConfig struct {
	// MetricsEnabled exposes Prometheus metrics on /metrics
	MetricsEnabled bool `yaml:"metricsEnabled,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetAddress returns the listen address, using the default if not specified
func (c *Config) GetAddress() string {
	if c.Server.Address == "" {
		return DefaultAddress
	}
	return c.Server.Address
}

// GetAPIKey returns the write API key using the following priority:
// 1. Read from Auth.APIKeyFile if specified
// 2. Read from the TFREGISTRY_API_KEY environment variable
//
// The key read from file has leading/trailing whitespace trimmed.
func (c *Config) GetAPIKey() (string, error) {
	if c.Auth.APIKeyFile != "" {
		return readSecretFile(c.Auth.APIKeyFile, "API key")
	}

	if envKey := os.Getenv(APIKeyEnvVar); envKey != "" {
		return envKey, nil
	}

	return "", fmt.Errorf(
		"no API key configured: set auth.apiKeyFile or the %s environment variable", APIKeyEnvVar,
	)
}

// GetSecretKey returns the store secret access key using the following
// priority:
// 1. Read from Storage.SecretKeyFile if specified
// 2. Read from the TFREGISTRY_STORAGE_SECRET_KEY environment variable
//
// An empty result is valid; it means the ambient credential chain is used.
func (c *Config) GetSecretKey() (string, error) {
	if c.Storage.SecretKeyFile != "" {
		return readSecretFile(c.Storage.SecretKeyFile, "secret key")
	}

	return os.Getenv(SecretKeyEnvVar), nil
}

// readSecretFile reads a single secret from a file, trimming whitespace.
func readSecretFile(path, what string) (string, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s from file %s: %w", what, path, err)
	}

	return strings.TrimSpace(string(data)), nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}

	if c.Storage.AccessKey != "" && c.Storage.SecretKeyFile == "" && os.Getenv(SecretKeyEnvVar) == "" {
		return fmt.Errorf(
			"storage.accessKey is set but no secret key is configured: set storage.secretKeyFile or %s",
			SecretKeyEnvVar,
		)
	}

	if c.Server.Address != "" && !strings.Contains(c.Server.Address, ":") {
		return fmt.Errorf("server.address must be in host:port form, got %q", c.Server.Address)
	}

	return nil
}
