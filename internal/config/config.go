// Package config provides unified configuration for the reshape toolkit.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the unified configuration for the reshape CLI and libraries.
type Config struct {
	// DataDir is the base directory for all local data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// LogLevel is the structured-log level: debug, info, warn, error
	LogLevel string `json:"log_level" yaml:"log_level"`

	// DefaultParallel is the PARALLEL hint applied when a request leaves it unset (0 disables the hint)
	DefaultParallel int `json:"default_parallel" yaml:"default_parallel"`

	// Catalog configuration
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`

	// OpLog configuration
	OpLog OpLogConfig `json:"oplog" yaml:"oplog"`

	// Archive storage configuration
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
}

// CatalogConfig holds local metadata catalog configuration.
type CatalogConfig struct {
	// Path is the catalog database file. Defaults under DataDir.
	Path string `json:"path" yaml:"path"`
}

// OpLogConfig holds operation-log configuration.
type OpLogConfig struct {
	// Path is the operation-log database file. Defaults under DataDir.
	Path string `json:"path" yaml:"path"`

	// QueueSize bounds the asynchronous record queue (default 256)
	QueueSize int `json:"queue_size" yaml:"queue_size"`

	// RetentionDays is the age past which records are eligible for archival
	RetentionDays int `json:"retention_days" yaml:"retention_days"`
}

// ArchiveConfig holds archive object-storage configuration.
type ArchiveConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local archive path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 archive configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle forces path-style addressing (MinIO and friends)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir:         "./data/reshape",
		LogLevel:        "info",
		DefaultParallel: 0,
		OpLog: OpLogConfig{
			QueueSize:     256,
			RetentionDays: 30,
		},
		Archive: ArchiveConfig{
			Type: "local",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/reshape"
	}

	if c.Catalog.Path == "" {
		c.Catalog.Path = filepath.Join(c.DataDir, "catalog.db")
	}

	if c.OpLog.Path == "" {
		c.OpLog.Path = filepath.Join(c.DataDir, "oplog.db")
	}

	if c.Archive.Type == "local" && c.Archive.Path == "" {
		c.Archive.Path = filepath.Join(c.DataDir, "archive")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.DefaultParallel < 0 {
		return fmt.Errorf("default_parallel must be >= 0, got %d", c.DefaultParallel)
	}

	if c.Archive.Type != "local" && c.Archive.Type != "s3" {
		return fmt.Errorf("invalid archive type: %s (must be local or s3)", c.Archive.Type)
	}

	if c.Archive.Type == "s3" && c.Archive.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when archive type is s3")
	}

	if c.OpLog.QueueSize < 0 {
		return fmt.Errorf("oplog.queue_size must be >= 0, got %d", c.OpLog.QueueSize)
	}

	if c.OpLog.RetentionDays < 1 {
		return fmt.Errorf("oplog.retention_days must be >= 1, got %d", c.OpLog.RetentionDays)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the RESHAPE_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("RESHAPE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RESHAPE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RESHAPE_DEFAULT_PARALLEL"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.DefaultParallel)
	}

	// Catalog configuration
	if v := os.Getenv("RESHAPE_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}

	// Operation-log configuration
	if v := os.Getenv("RESHAPE_OPLOG_PATH"); v != "" {
		cfg.OpLog.Path = v
	}
	if v := os.Getenv("RESHAPE_OPLOG_QUEUE_SIZE"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.OpLog.QueueSize)
	}
	if v := os.Getenv("RESHAPE_OPLOG_RETENTION_DAYS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.OpLog.RetentionDays)
	}

	// Archive configuration
	if v := os.Getenv("RESHAPE_ARCHIVE_TYPE"); v != "" {
		cfg.Archive.Type = v
	}
	if v := os.Getenv("RESHAPE_ARCHIVE_PATH"); v != "" {
		cfg.Archive.Path = v
	}
	if v := os.Getenv("RESHAPE_S3_BUCKET"); v != "" {
		cfg.Archive.S3.Bucket = v
	}
	if v := os.Getenv("RESHAPE_S3_REGION"); v != "" {
		cfg.Archive.S3.Region = v
	}
	if v := os.Getenv("RESHAPE_S3_ENDPOINT"); v != "" {
		cfg.Archive.S3.Endpoint = v
	}
	if v := os.Getenv("RESHAPE_S3_USE_PATH_STYLE"); v != "" {
		cfg.Archive.S3.UsePathStyle = v == "true" || v == "1"
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		filepath.Dir(c.Catalog.Path),
		filepath.Dir(c.OpLog.Path),
	}
	if c.Archive.Type == "local" {
		dirs = append(dirs, c.Archive.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
