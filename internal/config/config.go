// Package config loads the relay's settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"room-relay/internal/chat"
)

type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	History chat.RetentionPolicy
	Relay   RelayConfig
	// ArchiveDSN enables the Postgres message archive when set.
	ArchiveDSN string
}

type ServerConfig struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RelayConfig struct {
	DefaultRoom string
	Policy      chat.DuplicatePolicy
}

func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	history, err := loadHistoryConfig()
	if err != nil {
		return nil, err
	}

	policy, err := chat.ParseDuplicatePolicy(getEnvOrDefault("DUPLICATE_SESSION_POLICY", string(chat.DuplicateEvict)))
	if err != nil {
		return nil, fmt.Errorf("invalid DUPLICATE_SESSION_POLICY: %w", err)
	}

	return &Config{
		Server:  server,
		Redis:   redisCfg,
		History: history,
		Relay: RelayConfig{
			DefaultRoom: getEnvOrDefault("DEFAULT_ROOM", "general"),
			Policy:      policy,
		},
		ArchiveDSN: strings.TrimSpace(os.Getenv("DB_DSN")),
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	addr, err := parseAddr(getEnvOrDefault("PORT", "3500"))
	if err != nil {
		return ServerConfig{}, err
	}

	timeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Addr:            addr,
		AllowedOrigins:  splitList(getEnvOrDefault("ALLOWED_ORIGINS", "*")),
		ShutdownTimeout: timeout,
	}, nil
}

// parseAddr accepts a bare port or a full host:port.
func parseAddr(port string) (string, error) {
	if strings.Contains(port, ":") {
		return port, nil
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}
	return ":" + port, nil
}

func loadRedisConfig() (RedisConfig, error) {
	db, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func loadHistoryConfig() (chat.RetentionPolicy, error) {
	window, err := parseDurationEnv("HISTORY_TTL", chat.DefaultRetention().Window)
	if err != nil {
		return chat.RetentionPolicy{}, err
	}
	if window < 0 {
		return chat.RetentionPolicy{}, fmt.Errorf("invalid HISTORY_TTL value %q: must not be negative", window)
	}

	maxMessages, err := parseIntEnv("HISTORY_MAX_MESSAGES", 0)
	if err != nil {
		return chat.RetentionPolicy{}, err
	}
	if maxMessages < 0 {
		return chat.RetentionPolicy{}, fmt.Errorf("invalid HISTORY_MAX_MESSAGES value %d: must not be negative", maxMessages)
	}

	return chat.RetentionPolicy{Window: window, MaxMessages: int64(maxMessages)}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
