package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/dary/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConfig(), cfg)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DARY_PORT", "9090")
	t.Setenv("DARY_CACHE_TYPE", "redis")
	t.Setenv("DARY_HISTORY_TTL", "2h")
	t.Setenv("DARY_BATCH_WORKERS", "3")
	t.Setenv("DARY_LOG_FORMAT", "text")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, 2*time.Hour, cfg.History.TTL)
	assert.Equal(t, 3, cfg.Batch.Workers)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "dary.env")
	require.NoError(t, os.WriteFile(path, []byte("DARY_SCREENS_FILE=screens.toml\nDARY_HISTORY_MAX_ENTRIES=50\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DARY_SCREENS_FILE")
		os.Unsetenv("DARY_HISTORY_MAX_ENTRIES")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "screens.toml", cfg.Screens.File)
	assert.Equal(t, 50, cfg.History.MaxEntries)

	_, err = Load(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestLoadDebug(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DARY_DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"DARY_CACHE_TYPE":    "memcached",
		"DARY_PORT":          "0",
		"DARY_LOG_LEVEL":     "verbose",
		"DARY_BATCH_WORKERS": "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(key, value)

			_, err := Load("")
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestUsage(t *testing.T) {
	assert.Contains(t, Usage(), "DARY_PORT")
}
