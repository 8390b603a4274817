package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadFileAndEnvLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: mysql
  dsn: user:pw@tcp(127.0.0.1:3306)/metrico?parseTime=True
server:
  addr: ":9090"
hunters:
  fake:
    cls: fake
    options:
      medias: 3
triggers:
  hourly:
    cls: simple
    options:
      order: desc
`), 0o644))
	t.Setenv("METRICO_SERVER_ADDR", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	// Env beats file.
	assert.Equal(t, ":7070", cfg.Server.Addr)

	require.Contains(t, cfg.Hunters, "fake")
	assert.Equal(t, "fake", cfg.Hunters["fake"].Cls)
	require.Contains(t, cfg.Triggers, "hourly")
	assert.Equal(t, "desc", cfg.Triggers["hourly"].Options["order"])
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadRejectsBadDriver(t *testing.T) {
	t.Setenv("METRICO_DATABASE_DRIVER", "oracle")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsTriggerWithoutCls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
triggers:
  hourly:
    options: {}
`), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
