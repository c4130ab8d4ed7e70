package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Empty(t, cfg.File)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, int64(10<<20), cfg.Import.MaxFileSize)
	assert.Equal(t, 10, cfg.Import.PaceEvery)
	assert.Equal(t, 10*time.Millisecond, cfg.Import.Pause)
	assert.Equal(t, 10, cfg.Import.PreviewRows)
	assert.Equal(t, ProgressMemory, cfg.Progress.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Progress.TTL)
	assert.Equal(t, 1000, cfg.Progress.Capacity)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  addr: ":9090"
storage:
  driver: memory
import:
  pause: 250ms
  reportDir: /tmp/reports
progress:
  backend: redis
  redis:
    addr: redis:6379
database:
  port: 6543
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("TESTCRAFT_SERVER_ADDR", ":7070")
	t.Setenv("TESTCRAFT_OPENAI_APIKEY", "sk-test")
	t.Setenv("TESTCRAFT_IMPORT_PACEEVERY", "3")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.File)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Import.Pause)
	assert.Equal(t, 3, cfg.Import.PaceEvery)
	assert.Equal(t, "/tmp/reports", cfg.Import.ReportDir)
	assert.Equal(t, ProgressRedis, cfg.Progress.Backend)
	assert.Equal(t, "redis:6379", cfg.Progress.Redis.Addr)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("TESTCRAFT_STORAGE_DRIVER", "sqlite")
	_, err := Load(t.TempDir())
	require.Error(t, err)
}
