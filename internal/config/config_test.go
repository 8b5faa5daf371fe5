package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	p := writeConfig(t, `
telegram:
  bot_token: "admin-token"
  super_admin_id: 42
monitor:
  bot_token: "monitor-token"
`)
	cfg, err := LoadConfig(p)
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Telegram.SuperAdminID)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/bot_database.db", cfg.Database.Path)
	assert.Equal(t, 500, cfg.Monitor.MaxMessageLength)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.ErrorBackoff)
	assert.Equal(t, 60*time.Minute, cfg.Registration.Cooldown)
	assert.Equal(t, 100, cfg.Registration.MaxSearchGroups)
	assert.True(t, cfg.Telegram.IsSuperAdmin(42))
	assert.False(t, cfg.Telegram.IsSuperAdmin(7))
}

func TestLoadConfig_ParsesDurations(t *testing.T) {
	p := writeConfig(t, `
telegram:
  bot_token: "a"
  super_admin_id: 1
monitor:
  bot_token: "b"
scheduler:
  error_backoff: 30s
registration:
  cooldown: 90m
`)
	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.ErrorBackoff)
	assert.Equal(t, 90*time.Minute, cfg.Registration.Cooldown)
}

func TestLoadConfig_RejectsSharedToken(t *testing.T) {
	p := writeConfig(t, `
telegram:
  bot_token: "same"
  super_admin_id: 1
monitor:
  bot_token: "same"
`)
	_, err := LoadConfig(p)
	assert.Error(t, err)
}

func TestLoadConfig_RejectsMissingSuperAdmin(t *testing.T) {
	p := writeConfig(t, `
telegram:
  bot_token: "a"
monitor:
  bot_token: "b"
`)
	_, err := LoadConfig(p)
	assert.Error(t, err)
}

func TestLoadConfig_RejectsUnknownDriver(t *testing.T) {
	p := writeConfig(t, `
telegram:
  bot_token: "a"
  super_admin_id: 1
monitor:
  bot_token: "b"
database:
  driver: "oracle"
`)
	_, err := LoadConfig(p)
	assert.Error(t, err)
}

func TestLoadConfig_ExampleFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "config", "config.example.yaml"))
	require.NoError(t, err)

	assert.NotEqual(t, cfg.Telegram.BotToken, cfg.Monitor.BotToken)
	assert.Equal(t, 60*time.Minute, cfg.Registration.Cooldown)
	assert.Equal(t, 100, cfg.Registration.MaxSearchGroups)
	assert.Equal(t, "Asia/Tashkent", cfg.System.Timezone)
}
