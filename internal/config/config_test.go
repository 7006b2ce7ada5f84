package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "sqlite3", cfg.DB.Driver)
	assert.Equal(t, LedgerMemory, cfg.Ledger.Mode)
	assert.Equal(t, 64, cfg.Events.Buffer)
	assert.Equal(t, uint64(5), cfg.Processor.MaxRetries)
	assert.Empty(t, cfg.AMQP.URL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yaml := "port: \"9000\"\nledger:\n  mode: nats\n  nats_url: nats://file:4222\nprocessor:\n  max_retries: 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("NATS_URL", "nats://env:4222")
	t.Setenv("API_TOKEN", "secret")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, LedgerNATS, cfg.Ledger.Mode)
	assert.Equal(t, "nats://env:4222", cfg.Ledger.NATSURL)
	assert.Equal(t, uint64(2), cfg.Processor.MaxRetries)
	assert.Equal(t, "secret", cfg.APIToken)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "8083", cfg.Port)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	clearEnv(t)
	t.Run("nats without url", func(t *testing.T) {
		t.Setenv("LEDGER_MODE", "nats")
		_, err := Load()
		assert.ErrorContains(t, err, "NATS_URL")
	})
	t.Run("unknown ledger", func(t *testing.T) {
		t.Setenv("LEDGER_MODE", "carrier-pigeon")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "postgres")
		_, err := Load()
		assert.ErrorContains(t, err, "DB_DSN")
	})
}
