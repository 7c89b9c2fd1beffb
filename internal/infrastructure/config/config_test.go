package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iho/bizledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AMQP_URL", "")

	cfg, err := config.LoadFiles()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.ReconcilePolicy != "none" {
		t.Fatalf("expected reconcile policy none by default, got %s", cfg.ReconcilePolicy)
	}

	if cfg.WriteQueueSize != 1024 {
		t.Fatalf("expected default write queue size 1024, got %d", cfg.WriteQueueSize)
	}

	if cfg.AMQPURL != "" {
		t.Fatalf("expected event publishing disabled by default, got %q", cfg.AMQPURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("RECONCILE_POLICY", "revert")
	t.Setenv("WRITE_QUEUE_SIZE", "16")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := config.LoadFiles()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.ReconcilePolicy != "revert" || cfg.WriteQueueSize != 16 {
		t.Fatalf("expected reconcile settings, got policy=%s size=%d", cfg.ReconcilePolicy, cfg.WriteQueueSize)
	}

	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.RateLimitRPS)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.LoadFiles(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadRejectsEmptyWriteQueue(t *testing.T) {
	t.Setenv("WRITE_QUEUE_SIZE", "0")

	if _, err := config.LoadFiles(); err == nil {
		t.Fatalf("expected error for zero write queue size")
	}
}

func TestLoadDotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("HTTP_PORT=7070\nAMQP_EXCHANGE=ledger.events\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("HTTP_PORT", "")
	os.Unsetenv("HTTP_PORT")
	t.Setenv("AMQP_EXCHANGE", "from-env")

	cfg, err := config.LoadFiles(path, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.HTTPPort != "7070" {
		t.Fatalf("expected port from dotenv file, got %s", cfg.HTTPPort)
	}
	if cfg.AMQPExchange != "from-env" {
		t.Fatalf("expected environment to win over dotenv, got %s", cfg.AMQPExchange)
	}
}
