package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	for _, k := range []string{"JWT_SECRET", "JWT_ISS", "JWT_AUD", "JWT_EXPIRY", "ORG_NAME", "LEDGER_TIMEZONE", "DATA_BACKEND"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	// Check defaults
	if cfg.JWTSecret != DefaultJWTSecret {
		t.Errorf("Expected default JWT_SECRET, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "project-ledger-api" {
		t.Errorf("Expected default JWT_ISS, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "project-ledger-api" {
		t.Errorf("Expected default JWT_AUD, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("Expected default JWT_EXPIRY, got %v", cfg.JWTExpiry)
	}
	if cfg.OrgName != "Akij" {
		t.Errorf("Expected default ORG_NAME, got %s", cfg.OrgName)
	}
	if cfg.Timezone != "Asia/Dhaka" {
		t.Errorf("Expected default LEDGER_TIMEZONE, got %s", cfg.Timezone)
	}
	if cfg.DataBackend != "postgres" {
		t.Errorf("Expected default DATA_BACKEND, got %s", cfg.DataBackend)
	}
}

func TestLoadWithEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("JWT_ISS", "test-issuer")
	t.Setenv("JWT_AUD", "test-audience")
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("LOGIN_RATE_PER_MIN", "3")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("SESSION_STORE", "redis")

	cfg := Load()

	if cfg.JWTSecret != "test-secret-key" {
		t.Errorf("Expected JWT_SECRET from env, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "test-issuer" {
		t.Errorf("Expected JWT_ISS from env, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "test-audience" {
		t.Errorf("Expected JWT_AUD from env, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 2*time.Hour {
		t.Errorf("Expected JWT_EXPIRY from env, got %v", cfg.JWTExpiry)
	}
	if cfg.LoginRateLimit != 3 {
		t.Errorf("Expected LOGIN_RATE_PER_MIN from env, got %d", cfg.LoginRateLimit)
	}
	if !cfg.CookieSecure {
		t.Error("Expected COOKIE_SECURE from env")
	}
	if cfg.SessionStore != "redis" {
		t.Errorf("Expected SESSION_STORE from env, got %s", cfg.SessionStore)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "forever")
	t.Setenv("LOGIN_BURST", "lots")

	cfg := Load()

	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("Expected fallback JWT_EXPIRY, got %v", cfg.JWTExpiry)
	}
	if cfg.LoginBurst != 5 {
		t.Errorf("Expected fallback LOGIN_BURST, got %d", cfg.LoginBurst)
	}
}

func validConfig() *Config {
	return &Config{
		JWTSecret:   "valid-secret-that-is-long-enough-for-testing",
		JWTIssuer:   "test-issuer",
		JWTAudience: "test-audience",
		JWTExpiry:   time.Hour,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"secret too short", func(c *Config) { c.JWTSecret = "short" }, true},
		{"empty issuer", func(c *Config) { c.JWTIssuer = "" }, true},
		{"empty audience", func(c *Config) { c.JWTAudience = "" }, true},
		{"negative expiry", func(c *Config) { c.JWTExpiry = -time.Hour }, true},
		{"zero expiry", func(c *Config) { c.JWTExpiry = 0 }, true},
		{"expiry too short", func(c *Config) { c.JWTExpiry = 30 * time.Second }, true},
		{"expiry too long", func(c *Config) { c.JWTExpiry = 31 * 24 * time.Hour }, true},
		{"unknown backend", func(c *Config) { c.DataBackend = "sqlite" }, true},
		{"memory backend", func(c *Config) { c.DataBackend = "memory" }, false},
		{"postgres without dsn", func(c *Config) { c.DataBackend = "postgres" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"redis without address", func(c *Config) { c.SessionStore = "redis" }, true},
		{"unknown session store", func(c *Config) { c.SessionStore = "file" }, true},
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
		{"utc timezone", func(c *Config) { c.Timezone = "UTC" }, false},
		{"negative rate limit", func(c *Config) { c.LoginRateLimit = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.expectError {
				t.Errorf("Validate() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-that-is-long-enough-for-testing")
	t.Setenv("JWT_ISS", "test-issuer")
	t.Setenv("JWT_AUD", "test-audience")
	t.Setenv("JWT_EXPIRY", "1h")
	t.Setenv("LEDGER_TIMEZONE", "UTC")

	cfg, err := LoadAndValidate()
	if err != nil {
		t.Errorf("LoadAndValidate() failed with valid config: %v", err)
	}
	if cfg == nil {
		t.Error("LoadAndValidate() returned nil config with valid config")
	}

	t.Setenv("JWT_SECRET", "short")

	_, err = LoadAndValidate()
	if err == nil {
		t.Error("LoadAndValidate() should fail with invalid config")
	}
}

func TestProductionSecretValidation(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", DefaultJWTSecret)
	t.Setenv("LEDGER_TIMEZONE", "UTC")

	cfg := Load()
	if err := cfg.Validate(); err == nil {
		t.Error("Production validation should fail with default secret")
	}

	t.Setenv("JWT_SECRET", "proper-production-secret-that-is-long-enough")

	cfg = Load()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Production validation should pass with proper secret: %v", err)
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "UTC"}
	if cfg.Location() != time.UTC {
		t.Errorf("Expected UTC, got %v", cfg.Location())
	}
	cfg.Timezone = "Nowhere/Invalid"
	if cfg.Location() != time.UTC {
		t.Errorf("Expected UTC fallback, got %v", cfg.Location())
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("ORG_NAME=Dotenv Org\nPORT=9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ORG_NAME", "")
	os.Unsetenv("ORG_NAME")
	t.Setenv("PORT", "7000")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}

	cfg := Load()
	if cfg.OrgName != "Dotenv Org" {
		t.Errorf("Expected ORG_NAME from .env, got %s", cfg.OrgName)
	}
	if cfg.Port != "7000" {
		t.Errorf("Expected existing PORT to win over .env, got %s", cfg.Port)
	}
}
