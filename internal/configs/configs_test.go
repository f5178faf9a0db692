package configs

import (
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable LoadConfig reads so ambient shell state
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"ENVIRONMENT", "PORT", "ALLOWED_ORIGINS", "JWT_SECRET",
		"TRANSPORT", "REDIS_ADDR", "REDIS_PASSWORD", "NATS_SERVERS",
		"ROOM_IDLE_TTL_SECONDS",
		"S3_BUCKET_NAME", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY",
		"DATABASE_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("expected development environment, got %q", cfg.Environment)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.Transport != TransportMemory {
		t.Errorf("expected memory transport, got %q", cfg.Transport)
	}
	if cfg.RoomIdleTTL != 5*time.Minute {
		t.Errorf("expected default idle TTL 5m, got %v", cfg.RoomIdleTTL)
	}
	if cfg.JWTSecret == "" {
		t.Error("expected development fallback JWT secret")
	}
	if cfg.DatabaseDSN == "" {
		t.Error("expected development fallback database DSN")
	}
	if cfg.S3Enabled() {
		t.Error("expected S3 disabled without a bucket")
	}
}

func TestLoadConfigRejectsBadPort(t *testing.T) {
	clearEnv(t)

	for _, port := range []string{"abc", "80", "70000"} {
		t.Setenv("PORT", port)
		if _, err := LoadConfig(); err == nil {
			t.Errorf("PORT=%q: expected error", port)
		}
	}
}

func TestLoadConfigRequiresJWTSecretOutsideDevelopment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "postgres://prod")

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}

	t.Setenv("JWT_SECRET", "prod-secret")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.JWTSecret != "prod-secret" {
		t.Errorf("unexpected secret %q", cfg.JWTSecret)
	}
}

func TestLoadConfigRequiresDatabaseURLOutsideDevelopment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "prod-secret")

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestLoadConfigParsesAllowedOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("got origins %v, want %v", cfg.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Errorf("origin %d = %q, want %q", i, cfg.AllowedOrigins[i], want[i])
		}
	}
}

func TestLoadConfigTransportValidation(t *testing.T) {
	clearEnv(t)

	t.Setenv("TRANSPORT", "redis")
	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "REDIS_ADDR") {
		t.Fatalf("expected REDIS_ADDR error, got %v", err)
	}

	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RedisAddr != "localhost:6379" || cfg.RedisPassword != "hunter2" {
		t.Errorf("unexpected redis settings: %q %q", cfg.RedisAddr, cfg.RedisPassword)
	}

	t.Setenv("TRANSPORT", "nats")
	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "NATS_SERVERS") {
		t.Fatalf("expected NATS_SERVERS error, got %v", err)
	}

	t.Setenv("NATS_SERVERS", "nats://localhost:4222")
	if _, err := LoadConfig(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Setenv("TRANSPORT", "carrier-pigeon")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected unknown transport rejected")
	}
}

func TestLoadConfigRoomIdleTTL(t *testing.T) {
	clearEnv(t)

	t.Setenv("ROOM_IDLE_TTL_SECONDS", "60")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RoomIdleTTL != time.Minute {
		t.Errorf("expected 1m idle TTL, got %v", cfg.RoomIdleTTL)
	}

	for _, bad := range []string{"0", "-5", "soon"} {
		t.Setenv("ROOM_IDLE_TTL_SECONDS", bad)
		if _, err := LoadConfig(); err == nil {
			t.Errorf("ROOM_IDLE_TTL_SECONDS=%q: expected error", bad)
		}
	}
}

func TestLoadConfigS3SettingsRequiredTogether(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_BUCKET_NAME", "emotes")

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "S3_ENDPOINT") {
		t.Fatalf("expected S3_ENDPOINT error, got %v", err)
	}

	t.Setenv("S3_ENDPOINT", "https://r2.example")
	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "S3_ACCESS_KEY_ID") {
		t.Fatalf("expected S3_ACCESS_KEY_ID error, got %v", err)
	}

	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.S3Enabled() {
		t.Error("expected S3 enabled with full settings")
	}
}
