// config_test.go - Tests for configuration loading
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbc-logbook/backend/internal/storage"
)

func TestLoadConfig_WritesDefaults(t *testing.T) {
	for _, name := range []string{"config.xml", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, name)

			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			assert.FileExists(t, path)
			assert.Equal(t, 8089, cfg.Server.Port)
			assert.Equal(t, storage.DriverDuckDB, cfg.Storage.Driver)
			assert.Equal(t, filepath.Join(dir, "data"), cfg.Storage.DataDirectory)
			assert.Equal(t, filepath.Join(dir, "data", "logbook.duckdb"), cfg.Storage.DatabasePath)
			assert.Equal(t, filepath.Join(dir, "hardcode"), cfg.Import.HardcodeFile)

			again, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.Storage, again.Storage)
			assert.Equal(t, cfg.Import, again.Import)
		})
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `server:
  port: 9000
storage:
  driver: sqlite
  databasePath: /var/lib/logbook.db
import:
  parseWorkers: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/logbook.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 2, cfg.Import.ParseWorkers)
	assert.Equal(t, 64, cfg.Import.ProgressBuffer, "unset keys keep defaults")
	assert.Equal(t, "/var/lib/logbook.db", cfg.StoreConfig().Path)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PORT", "7000")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DB_DSN", "postgres://localhost/logbook")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATA_DIR", filepath.Join(dir, "elsewhere"))

	cfg, err := LoadConfig(filepath.Join(dir, "config.xml"))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "pgx", cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/logbook", cfg.StoreConfig().DSN)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
	assert.Equal(t, filepath.Join(dir, "elsewhere"), cfg.Storage.DataDirectory)
	assert.Equal(t, "0.0.0.0:7000", cfg.GetServerAddr())
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "stick")
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VCONTROL_ROOT="+root+"\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("VCONTROL_ROOT") })

	cfg, err := LoadConfig(filepath.Join(dir, "config.xml"))
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Import.RootPath)

	got, ok := cfg.Roots()()
	assert.True(t, ok)
	assert.Equal(t, root, got)
}

func TestRoots_Hardcode(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Import.VolumesDir = ""
	cfg.Import.MountTable = ""
	cfg.Import.HardcodeFile = filepath.Join(dir, "hardcode")

	_, ok := cfg.Roots()()
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(cfg.Import.HardcodeFile, []byte("/mnt/vc\n"), 0644))
	root, ok := cfg.Roots()()
	assert.True(t, ok)
	assert.Equal(t, "/mnt/vc", root)
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DataDirectory = filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.Storage.DataDirectory)
}
