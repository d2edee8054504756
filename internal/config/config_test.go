package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, key := range []string{
		"SERVER_PORT", "PORT", "DATABASE_URL", "REDIS_URL", "RABBITMQ_URL",
		"DEFAULT_USER_ID", "DB_MAX_CONNS", "DB_CONNECT_TIMEOUT_SECONDS",
		"WRITE_RATE_LIMIT_PER_MINUTE", "ACTIVITY_EVENT_EXCHANGE",
	} {
		unsetEnvWithCleanup(t, key)
	}

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.DefaultUserID != 1 {
		t.Fatalf("expected default user id 1, got %d", cfg.DefaultUserID)
	}
	if cfg.DBMaxConns != 5 {
		t.Fatalf("expected default max conns 5, got %d", cfg.DBMaxConns)
	}
	if cfg.DBConnectTimeoutSeconds != 3 {
		t.Fatalf("expected default connect timeout 3s, got %d", cfg.DBConnectTimeoutSeconds)
	}
	if cfg.ActivityEventExchange != "renewal_events" {
		t.Fatalf("expected default exchange, got %q", cfg.ActivityEventExchange)
	}
	if cfg.RedisRateLimitPrefix != "recurr:rate_limit" {
		t.Fatalf("expected default redis prefix, got %q", cfg.RedisRateLimitPrefix)
	}
}

func TestLoadConfig_PlatformPortOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "9001")
	setEnvWithCleanup(t, "PORT", "3333")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "3333" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_ReadsEnvironment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "PORT")
	setEnvWithCleanup(t, "DATABASE_URL", "postgres://app:secret@db:5432/renewals")
	setEnvWithCleanup(t, "DEFAULT_USER_ID", "9")
	setEnvWithCleanup(t, "WRITE_RATE_LIMIT_PER_MINUTE", "60")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://app:secret@db:5432/renewals" {
		t.Fatalf("unexpected database url: %q", cfg.DatabaseURL)
	}
	if cfg.DefaultUserID != 9 {
		t.Fatalf("expected user id 9, got %d", cfg.DefaultUserID)
	}
	if cfg.WriteRateLimitPerMinute != 60 {
		t.Fatalf("expected write limit 60, got %d", cfg.WriteRateLimitPerMinute)
	}
}

func TestLoadConfig_CoercesInvalidNumbers(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "DEFAULT_USER_ID", "-3")
	setEnvWithCleanup(t, "DB_MAX_CONNS", "0")
	setEnvWithCleanup(t, "DB_CONNECT_TIMEOUT_SECONDS", "-1")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DefaultUserID != 1 {
		t.Fatalf("expected coerced user id 1, got %d", cfg.DefaultUserID)
	}
	if cfg.DBMaxConns != 5 {
		t.Fatalf("expected coerced max conns 5, got %d", cfg.DBMaxConns)
	}
	if cfg.DBConnectTimeoutSeconds != 3 {
		t.Fatalf("expected coerced timeout 3, got %d", cfg.DBConnectTimeoutSeconds)
	}
}

func setEnvWithCleanup(t *testing.T, key, value string) {
	t.Helper()
	previous, existed := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if existed {
			os.Setenv(key, previous)
		} else {
			os.Unsetenv(key)
		}
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	previous, existed := os.LookupEnv(key)
	if !existed {
		return
	}
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		os.Setenv(key, previous)
	})
}
