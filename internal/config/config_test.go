package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
uploads:
  max_bytes: 1048576
limits:
  payment_submit_per_minute: 2
events:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
pagination:
  default_limit: 10
cleanup:
  orphan_retention: 48h
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Uploads.MaxBytes != 1<<20 {
		t.Fatalf("unexpected upload max bytes: %d", cfg.Uploads.MaxBytes)
	}
	if cfg.Limits.PaymentSubmitPerMinute != 2 {
		t.Fatalf("unexpected payment submit limit: %d", cfg.Limits.PaymentSubmitPerMinute)
	}
	if len(cfg.Events.Brokers) != 2 || cfg.Events.Brokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.Events.Brokers)
	}
	if cfg.Pagination.DefaultLimit != 10 {
		t.Fatalf("unexpected default limit: %d", cfg.Pagination.DefaultLimit)
	}
	if cfg.Cleanup.OrphanRetention.String() != "48h0m0s" {
		t.Fatalf("unexpected orphan retention: %s", cfg.Cleanup.OrphanRetention.String())
	}

	if cfg.Limits.AddToCartPerMinute != 30 {
		t.Fatalf("add_to_cart_per_minute default should stay 30")
	}
	if cfg.Pagination.MaxLimit != 100 {
		t.Fatalf("max_limit default should stay 100")
	}
	if cfg.Events.Topic != "recipemarket.transactions" {
		t.Fatalf("events topic default should stay, got %s", cfg.Events.Topic)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Uploads.MaxBytes != 5<<20 {
		t.Fatalf("unexpected default upload cap: %d", cfg.Uploads.MaxBytes)
	}
	if len(cfg.Uploads.AllowedTypes) != 4 {
		t.Fatalf("unexpected allowed types: %v", cfg.Uploads.AllowedTypes)
	}
	if cfg.Pagination.DefaultLimit != 20 {
		t.Fatalf("unexpected default page size: %d", cfg.Pagination.DefaultLimit)
	}
	if len(cfg.Events.Brokers) != 0 {
		t.Fatalf("events must be disabled by default")
	}
	if cfg.Notify.TelegramToken != "" {
		t.Fatalf("notifications must be disabled by default")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	t.Setenv("UPLOAD_MAX_BYTES", "2048")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "-100123")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.Events.Brokers) != 2 || cfg.Events.Brokers[0] != "a:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.Events.Brokers)
	}
	if cfg.Uploads.MaxBytes != 2048 {
		t.Fatalf("unexpected upload cap: %d", cfg.Uploads.MaxBytes)
	}
	if cfg.Notify.TelegramAdminChatID != -100123 {
		t.Fatalf("unexpected admin chat: %d", cfg.Notify.TelegramAdminChatID)
	}
}

func TestLoadRejectsDefaultJWTSecretInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error when jwt secret is left at default in production")
	}
}

func TestLoadRejectsTelegramTokenWithoutChat(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error when admin chat is missing")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_PUBLIC_BASE_URL",
		"S3_USE_SSL",
		"JWT_SECRET",
		"JWT_ACCESS_TTL",
		"REFRESH_TTL",
		"UPLOAD_MAX_BYTES",
		"PAYMENT_SUBMIT_PER_MINUTE",
		"ADD_TO_CART_PER_MINUTE",
		"KAFKA_BROKERS",
		"KAFKA_TOPIC",
		"TELEGRAM_BOT_TOKEN",
		"TELEGRAM_ADMIN_CHAT_ID",
		"ORPHAN_RETENTION",
	} {
		t.Setenv(key, "")
	}
}
