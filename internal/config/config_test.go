package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-relay/internal/chat"
)

var envKeys = []string{
	"PORT", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "HISTORY_TTL",
	"HISTORY_MAX_MESSAGES", "DEFAULT_ROOM", "DUPLICATE_SESSION_POLICY",
	"ALLOWED_ORIGINS", "DB_DSN", "SHUTDOWN_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3500", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, RedisConfig{Addr: "localhost:6379"}, cfg.Redis)
	assert.Equal(t, chat.DefaultRetention(), cfg.History)
	assert.Equal(t, RelayConfig{DefaultRoom: "general", Policy: chat.DuplicateEvict}, cfg.Relay)
	assert.Empty(t, cfg.ArchiveDSN)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("HISTORY_TTL", "1h")
	t.Setenv("HISTORY_MAX_MESSAGES", "500")
	t.Setenv("DEFAULT_ROOM", "lobby")
	t.Setenv("DUPLICATE_SESSION_POLICY", "reject")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example,")
	t.Setenv("DB_DSN", "postgres://relay@localhost/relay")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, RedisConfig{Addr: "redis:6380", Password: "hunter2", DB: 3}, cfg.Redis)
	assert.Equal(t, chat.RetentionPolicy{Window: time.Hour, MaxMessages: 500}, cfg.History)
	assert.Equal(t, RelayConfig{DefaultRoom: "lobby", Policy: chat.DuplicateReject}, cfg.Relay)
	assert.Equal(t, "postgres://relay@localhost/relay", cfg.ArchiveDSN)
}

func TestLoad_DisabledHistoryWindow(t *testing.T) {
	clearEnv(t)
	t.Setenv("HISTORY_TTL", "0s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.History.Window)
}

func TestLoad_Invalid(t *testing.T) {
	tcases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "port with spaces", key: "PORT", value: "80 80"},
		{name: "redis db", key: "REDIS_DB", value: "zero"},
		{name: "history ttl", key: "HISTORY_TTL", value: "a week"},
		{name: "negative history ttl", key: "HISTORY_TTL", value: "-1h"},
		{name: "history max", key: "HISTORY_MAX_MESSAGES", value: "lots"},
		{name: "negative history max", key: "HISTORY_MAX_MESSAGES", value: "-1"},
		{name: "policy", key: "DUPLICATE_SESSION_POLICY", value: "ignore"},
		{name: "shutdown timeout", key: "SHUTDOWN_TIMEOUT", value: "soon"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
