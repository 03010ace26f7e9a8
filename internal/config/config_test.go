package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

var configKeys = []string{
	"APP_ENV", "APP_HTTP_ADDR", "METRICS_ADDR", "STORE_TYPE", "DB_DSN", "SQLITE_PATH",
	"ADMIN_API_KEY", "ADMIN_API_KEY_HASH", "RATE_LIMIT_PER_IP", "LOG_LEVEL",
	"WEBHOOK_URLS", "WEBHOOK_SECRET", "WEBHOOK_MAX_RETRIES", "WEBHOOK_TIMEOUT", "SHUTDOWN_TIMEOUT",
	"AUDIT_LOG_SIZE",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != "dev" {
		t.Errorf("Expected AppEnv='dev', got '%s'", cfg.AppEnv)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("Expected HTTPAddr=':8080', got '%s'", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("Expected MetricsAddr=':9090', got '%s'", cfg.MetricsAddr)
	}
	if cfg.StoreType != "memory" {
		t.Errorf("Expected StoreType='memory', got '%s'", cfg.StoreType)
	}
	if cfg.SQLitePath != "jobwatch.db" {
		t.Errorf("Expected SQLitePath='jobwatch.db', got '%s'", cfg.SQLitePath)
	}
	if cfg.AdminAPIKey != DefaultAdminAPIKey {
		t.Errorf("Expected AdminAPIKey='%s', got '%s'", DefaultAdminAPIKey, cfg.AdminAPIKey)
	}
	if cfg.RateLimitPerIP != 100 {
		t.Errorf("Expected RateLimitPerIP=100, got %d", cfg.RateLimitPerIP)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel='info', got '%s'", cfg.LogLevel)
	}
	if len(cfg.WebhookURLs) != 0 {
		t.Errorf("Expected no webhook URLs, got %v", cfg.WebhookURLs)
	}
	if cfg.WebhookMaxRetries != 3 {
		t.Errorf("Expected WebhookMaxRetries=3, got %d", cfg.WebhookMaxRetries)
	}
	if cfg.AuditLogSize != 1000 {
		t.Errorf("Expected AuditLogSize=1000, got %d", cfg.AuditLogSize)
	}
	if cfg.WebhookTimeout != 10*time.Second {
		t.Errorf("Expected WebhookTimeout=10s, got %s", cfg.WebhookTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_HTTP_ADDR", ":9999")
	t.Setenv("METRICS_ADDR", ":7777")
	t.Setenv("STORE_TYPE", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/tasks.db")
	t.Setenv("ADMIN_API_KEY", "custom-key")
	t.Setenv("RATE_LIMIT_PER_IP", "200")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WEBHOOK_URLS", "https://a.example/hook, https://b.example/hook,")
	t.Setenv("WEBHOOK_MAX_RETRIES", "5")
	t.Setenv("WEBHOOK_TIMEOUT", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != "test" {
		t.Errorf("Expected AppEnv='test', got '%s'", cfg.AppEnv)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("Expected HTTPAddr=':9999', got '%s'", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":7777" {
		t.Errorf("Expected MetricsAddr=':7777', got '%s'", cfg.MetricsAddr)
	}
	if cfg.StoreType != "sqlite" || cfg.StoreDSN() != "/tmp/tasks.db" {
		t.Errorf("Expected sqlite store at /tmp/tasks.db, got %s %s", cfg.StoreType, cfg.StoreDSN())
	}
	if cfg.AdminAPIKey != "custom-key" {
		t.Errorf("Expected AdminAPIKey='custom-key', got '%s'", cfg.AdminAPIKey)
	}
	if cfg.RateLimitPerIP != 200 {
		t.Errorf("Expected RateLimitPerIP=200, got %d", cfg.RateLimitPerIP)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected LogLevel='debug', got '%s'", cfg.LogLevel)
	}
	if len(cfg.WebhookURLs) != 2 || cfg.WebhookURLs[1] != "https://b.example/hook" {
		t.Errorf("Expected two trimmed webhook URLs, got %v", cfg.WebhookURLs)
	}
	if cfg.WebhookMaxRetries != 5 {
		t.Errorf("Expected WebhookMaxRetries=5, got %d", cfg.WebhookMaxRetries)
	}
	if cfg.WebhookTimeout != 2*time.Second {
		t.Errorf("Expected WebhookTimeout=2s, got %s", cfg.WebhookTimeout)
	}
}

func TestLoad_MissingEnvFileIsAcceptable(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should not fail when .env is missing: %v", err)
	}
	if cfg == nil {
		t.Fatal("Config should not be nil")
	}
}

func validConfig() *Config {
	return &Config{
		AppEnv:       "dev",
		HTTPAddr:     ":8080",
		MetricsAddr:  ":9090",
		StoreType:    "memory",
		AdminAPIKey:  DefaultAdminAPIKey,
		AuditLogSize: 100,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown store", mutate: func(c *Config) { c.StoreType = "redis" }, wantField: "STORE_TYPE"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.StoreType = "postgres" }, wantField: "DB_DSN"},
		{name: "sqlite without path", mutate: func(c *Config) { c.StoreType = "sqlite" }, wantField: "SQLITE_PATH"},
		{name: "empty http addr", mutate: func(c *Config) { c.HTTPAddr = "" }, wantField: "APP_HTTP_ADDR"},
		{name: "empty metrics addr", mutate: func(c *Config) { c.MetricsAddr = "" }, wantField: "METRICS_ADDR"},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimitPerIP = -1 }, wantField: "RATE_LIMIT_PER_IP"},
		{name: "no admin credentials", mutate: func(c *Config) { c.AdminAPIKey = "" }, wantField: "ADMIN_API_KEY"},
		{name: "hash only", mutate: func(c *Config) { c.AdminAPIKey = ""; c.AdminAPIKeyHash = "$2a$12$x" }},
		{name: "empty audit log", mutate: func(c *Config) { c.AuditLogSize = 0 }, wantField: "AUDIT_LOG_SIZE"},
		{name: "negative retries", mutate: func(c *Config) { c.WebhookMaxRetries = -1 }, wantField: "WEBHOOK_MAX_RETRIES"},
		{name: "bad webhook url", mutate: func(c *Config) { c.WebhookURLs = []string{"ftp://x"} }, wantField: "WEBHOOK_URLS"},
		{name: "prod default key", mutate: func(c *Config) { c.AppEnv = "prod" }, wantField: "ADMIN_API_KEY"},
		{
			name: "prod webhook without secret",
			mutate: func(c *Config) {
				c.AppEnv = "production"
				c.AdminAPIKey = "s3cret"
				c.WebhookURLs = []string{"https://hooks.example"}
			},
			wantField: "WEBHOOK_SECRET",
		},
		{
			name: "prod ok",
			mutate: func(c *Config) {
				c.AppEnv = "prod"
				c.AdminAPIKey = "s3cret"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %s, want %s", verr.Field, tt.wantField)
			}
		})
	}
}
