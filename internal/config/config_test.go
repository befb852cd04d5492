// ABOUTME: Tests for configuration loading and validation
// ABOUTME: Covers YAML parsing, env var expansion and defaulting rules

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labstock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default("/data/labstock")

	assert.Equal(t, filepath.Join("/data/labstock", "labstock.db"), cfg.Database.Path)
	assert.True(t, cfg.Database.Seed)
	assert.Equal(t, filepath.Join("/data/labstock", "backups"), cfg.Backup.Dir)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /var/lib/labstock/inventory.db
  seed: false
backup:
  dir: /var/backups/labstock
audit:
  retention_days: 30
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/labstock/inventory.db", cfg.Database.Path)
	assert.False(t, cfg.Database.Seed)
	assert.Equal(t, "/var/backups/labstock", cfg.Backup.Dir)
	assert.Equal(t, 30, cfg.Audit.RetentionDays)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("LABSTOCK_TEST_DIR", "/srv/lab")

	path := writeConfig(t, `
database:
  path: ${LABSTOCK_TEST_DIR}/inventory.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/lab/inventory.db", cfg.Database.Path)
}

func TestLoad_BackupDirDefaultsNextToDatabase(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /opt/lab/inventory.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/opt/lab", "backups"), cfg.Backup.Dir)
}

func TestLoad_MissingDatabasePath(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: info
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.path is required")
}

func TestLoad_NegativeRetention(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/x.db
audit:
  retention_days: -1
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention_days")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
