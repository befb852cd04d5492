// ABOUTME: Configuration loading and parsing for labstock
// ABOUTME: YAML files with environment variable expansion and sensible defaults

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the complete labstock configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Backup   BackupConfig   `yaml:"backup"`
	Audit    AuditConfig    `yaml:"audit"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds store file settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
	Seed bool   `yaml:"seed"` // seed sample data when the database is empty
}

// BackupConfig holds backup directory settings.
type BackupConfig struct {
	Dir string `yaml:"dir"`
}

// AuditConfig holds activity log retention settings.
type AuditConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration rooted at the given data directory.
func Default(dataDir string) *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir, "labstock.db"),
			Seed: true,
		},
		Backup: BackupConfig{
			Dir: filepath.Join(dataDir, "backups"),
		},
		Audit: AuditConfig{
			RetentionDays: 90,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable
// values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Backup.Dir == "" {
		// Default to a backups directory next to the database file
		c.Backup.Dir = filepath.Join(filepath.Dir(c.Database.Path), "backups")
	}
	if c.Audit.RetentionDays < 0 {
		return fmt.Errorf("audit.retention_days cannot be negative")
	}
	return nil
}
