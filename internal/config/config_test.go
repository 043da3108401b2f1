package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("BOT_SERVICE_URL", "")
	t.Setenv("PORT2", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("PASSWORD_MODE", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendFile, cfg.StorageBackend)
	require.Equal(t, PasswordPlain, cfg.PasswordMode)
	require.Equal(t, "http://127.0.0.1:3003", cfg.BotServiceURL)
	require.Equal(t, defaultShutdownDelay, cfg.ShutdownPeriod)
	require.Zero(t, cfg.BotTimeout)
}

func TestLoadBotURLFromPort2(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("BOT_SERVICE_URL", "")
	t.Setenv("PORT2", "4100")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:4100", cfg.BotServiceURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("BOT_SERVICE_URL", "http://bot.internal:9000/")
	t.Setenv("BOT_TIMEOUT", "3s")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "4")
	t.Setenv("PASSWORD_MODE", "BCRYPT")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://bot.internal:9000", cfg.BotServiceURL)
	require.Equal(t, 3*time.Second, cfg.BotTimeout)
	require.Equal(t, 4*time.Second, cfg.ShutdownPeriod)
	require.Equal(t, PasswordBcrypt, cfg.PasswordMode)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"backend":      {"STORAGE_BACKEND", "sqlite"},
		"postgres url": {"STORAGE_BACKEND", "postgres"},
		"password":     {"PASSWORD_MODE", "md5"},
		"timeout":      {"BOT_TIMEOUT", "soon"},
		"attempts":     {"LOGIN_ATTEMPTS_PER_MINUTE", "many"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("APP_ENV", "production")
			t.Setenv("DATABASE_URL", "")
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadAcceptsMemoryBackend(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_BACKEND", "Memory")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendMemory, cfg.StorageBackend)
}
