package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults fill the missing sections", func(t *testing.T) {
		// Given: a config with only the log level
		path := writeConfig(t, "log-level: debug\n")

		// When: it is loaded
		conf, err := Load(path)

		// Then: every other field has its default
		require.NoError(t, err)
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, time.Hour, conf.Room.WaitingTTL)
		assert.Equal(t, 8, conf.Room.SpectatorCapacity)
		assert.Equal(t, 600*time.Millisecond, conf.Bot.Delay)
		assert.Equal(t, 64, conf.Bot.MaxSteps)
	})

	t.Run("Durations are read from yaml", func(t *testing.T) {
		path := writeConfig(t, "room:\n  waiting-ttl: 30m\nbot:\n  delay: 250ms\n  lock-ttl: 2s\n")

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, 30*time.Minute, conf.Room.WaitingTTL)
		assert.Equal(t, 250*time.Millisecond, conf.Bot.Delay)
		assert.Equal(t, 2*time.Second, conf.Bot.LockTTL)
	})

	t.Run("Missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))

		require.Error(t, err)
		assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yml")) })
	})
}
