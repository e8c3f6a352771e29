package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var loadKeys = []string{
	"APP_NAME", "APP_VERSION", "APP_ENV", "APP_PORT",
	"AUTH_ENABLED", "JWT_ISSUER_URI", "JWT_JWK_SET_URI", "AUTH_BYPASS_PATHS", "AUTH_DEFAULT_USER_ID",
	"REMOTE_BACKEND", "POSTGREST_URL", "POSTGREST_API_KEY",
	"LOCAL_STORE_BACKEND", "LOCAL_STORE_PATH", "REDIS_ADDR",
	"SYNC_FETCH_TIMEOUT", "SYNC_RETRIES", "SYNC_BACKOFF", "SYNC_FLAG_RPS", "SYNC_INTERVAL",
}

// clearEnv unsets every variable Load reads and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range loadKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("AUTH_ENABLED", "false")
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "goglosas" {
		t.Errorf("expected default app name 'goglosas', got %q", cfg.App.Name)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Remote.Backend != RemotePostgres {
		t.Errorf("expected postgres remote, got %q", cfg.Remote.Backend)
	}
	if cfg.LocalStore.Backend != LocalSQLite {
		t.Errorf("expected sqlite local store, got %q", cfg.LocalStore.Backend)
	}
	if cfg.Sync.FetchTimeout != 20*time.Second || cfg.Sync.Retries != 2 || cfg.Sync.Backoff != 2*time.Second {
		t.Errorf("unexpected sync defaults %+v", cfg.Sync)
	}
	if cfg.Sync.Interval != 0 {
		t.Errorf("expected background refresh disabled, got %v", cfg.Sync.Interval)
	}
	if cfg.Auth.DefaultUserID != "local-admin" || cfg.Auth.DefaultRole != "admin" {
		t.Errorf("unexpected default session %+v", cfg.Auth)
	}
	if len(cfg.Auth.BypassPaths) != 2 {
		t.Errorf("expected /health and /metrics bypassed, got %v", cfg.Auth.BypassPaths)
	}
}

func TestLoad_WithCustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REMOTE_BACKEND", "PostgREST")
	t.Setenv("POSTGREST_URL", "https://db.example.com/")
	t.Setenv("POSTGREST_API_KEY", "anon")
	t.Setenv("LOCAL_STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("SYNC_FLAG_RPS", "2.5")
	t.Setenv("SYNC_INTERVAL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Remote.Backend != RemotePostgREST {
		t.Errorf("expected postgrest backend, got %q", cfg.Remote.Backend)
	}
	if cfg.Remote.PostgRESTURL != "https://db.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Remote.PostgRESTURL)
	}
	if cfg.LocalStore.RedisAddr != "cache:6379" {
		t.Errorf("unexpected redis addr %q", cfg.LocalStore.RedisAddr)
	}
	if cfg.Sync.FlagSyncRPS != 2.5 {
		t.Errorf("expected 2.5 rps, got %v", cfg.Sync.FlagSyncRPS)
	}
	if cfg.Sync.Interval != 5*time.Minute {
		t.Errorf("expected 5m interval, got %v", cfg.Sync.Interval)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "auth enabled without issuer",
			env:     map[string]string{"AUTH_ENABLED": "true", "JWT_JWK_SET_URI": "https://idp/jwks"},
			wantErr: "JWT_ISSUER_URI",
		},
		{
			name:    "auth enabled without jwks",
			env:     map[string]string{"AUTH_ENABLED": "true", "JWT_ISSUER_URI": "https://idp"},
			wantErr: "JWT_JWK_SET_URI",
		},
		{
			name:    "unknown remote backend",
			env:     map[string]string{"REMOTE_BACKEND": "mongo"},
			wantErr: "REMOTE_BACKEND",
		},
		{
			name:    "postgrest without key",
			env:     map[string]string{"REMOTE_BACKEND": "postgrest", "POSTGREST_URL": "https://db"},
			wantErr: "POSTGREST_API_KEY",
		},
		{
			name:    "unknown local store",
			env:     map[string]string{"LOCAL_STORE_BACKEND": "bolt"},
			wantErr: "LOCAL_STORE_BACKEND",
		},
		{
			name:    "negative retries",
			env:     map[string]string{"SYNC_RETRIES": "-1"},
			wantErr: "SYNC_RETRIES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.HasPrefix(err.Error(), "invalid config:") || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("unexpected error %q", err)
			}
		})
	}
}

func TestHTTPSettings_Address(t *testing.T) {
	if addr := (HTTPSettings{Port: 8080}).Address(); addr != ":8080" {
		t.Errorf("expected address ':8080', got %q", addr)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback bool
		expected bool
	}{
		{"true value", "true", false, true},
		{"FALSE value", "FALSE", true, false},
		{"invalid value", "invalid", true, true},
		{"missing key", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)
			if tt.envValue == "" {
				os.Unsetenv("TEST_BOOL")
			}
			if got := getEnvAsBool("TEST_BOOL", tt.fallback); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestGetEnvAsNumbers(t *testing.T) {
	t.Setenv("TEST_INT", "-10")
	t.Setenv("TEST_BAD_INT", "diez")
	t.Setenv("TEST_FLOAT", "0.5")
	t.Setenv("TEST_DURATION", "90s")

	if got := getEnvAsInt("TEST_INT", 0); got != -10 {
		t.Errorf("expected -10, got %d", got)
	}
	if got := getEnvAsInt("TEST_BAD_INT", 42); got != 42 {
		t.Errorf("expected fallback 42, got %d", got)
	}
	if got := getEnvAsFloat("TEST_FLOAT", 1); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
	if got := getEnvAsDuration("TEST_DURATION", 0); got != 90*time.Second {
		t.Errorf("expected 90s, got %v", got)
	}
	if got := getEnvAsDuration("TEST_MISSING_DURATION", time.Second); got != time.Second {
		t.Errorf("expected fallback, got %v", got)
	}
}

func TestGetEnvAsCSV(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected []string
	}{
		{"multiple values", "/health,/metrics", []string{"/health", "/metrics"}},
		{"with spaces and blanks", " /health, ,/metrics ", []string{"/health", "/metrics"}},
		{"only separators", " , , ", []string{"default"}},
		{"empty string", "", []string{"default"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_CSV", tt.envValue)

			result := getEnvAsCSV("TEST_CSV", []string{"default"})
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d values, got %d", len(tt.expected), len(result))
			}
			for i, expected := range tt.expected {
				if result[i] != expected {
					t.Errorf("expected[%d] %q, got %q", i, expected, result[i])
				}
			}
		})
	}
}
