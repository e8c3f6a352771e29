package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig encapsulates all runtime configuration knobs.
type AppConfig struct {
	App        AppSettings
	HTTP       HTTPSettings
	Auth       AuthSettings
	Log        LogSettings
	Database   DatabaseSettings
	Remote     RemoteSettings
	LocalStore LocalStoreSettings
	Sync       SyncSettings
	Metrics    MetricsSettings
}

type AppSettings struct {
	Name        string
	Version     string
	Environment string
}

type HTTPSettings struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// AuthSettings configures JWT validation. With auth disabled every request
// runs as the default session.
type AuthSettings struct {
	Enabled     bool
	IssuerURI   string
	JWKSetURI   string
	ClockSkew   time.Duration
	BypassPaths []string

	DefaultUserID  string
	DefaultEmail   string
	DefaultRole    string
	DefaultSection string
}

type LogSettings struct {
	Level string
}

type DatabaseSettings struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

const (
	RemotePostgres  = "postgres"
	RemotePostgREST = "postgrest"
)

// RemoteSettings selects the authoritative record store.
type RemoteSettings struct {
	Backend         string
	PostgRESTURL    string
	APIKey          string
	Timeout         time.Duration
	MaxConnsPerHost int
	LogBodies       bool
	MaxBodySize     int
	// Consecutive failures before requests fail fast for BreakerCooldown.
	BreakerFailures int
	BreakerCooldown time.Duration
}

const (
	LocalSQLite = "sqlite"
	LocalRedis  = "redis"
	LocalMemory = "memory"
)

// LocalStoreSettings selects where the offline cache lives.
type LocalStoreSettings struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

type SyncSettings struct {
	FetchTimeout    time.Duration
	Retries         int
	Backoff         time.Duration
	MutationTimeout time.Duration
	FlagSyncRPS     float64
	// Interval between background refreshes; zero disables them.
	Interval time.Duration
}

type MetricsSettings struct {
	Enabled bool
}

// Load resolves the application configuration from environment variables.
// A .env file is read first when present; real environment variables win.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{
		App: AppSettings{
			Name:        getEnv("APP_NAME", "goglosas"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
			Environment: getEnv("APP_ENV", "local"),
		},
		HTTP: HTTPSettings{
			Port:            getEnvAsInt("APP_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxUploadBytes:  int64(getEnvAsInt("HTTP_MAX_UPLOAD_BYTES", 10<<20)),
		},
		Auth: AuthSettings{
			Enabled:        getEnvAsBool("AUTH_ENABLED", true),
			IssuerURI:      strings.TrimSpace(os.Getenv("JWT_ISSUER_URI")),
			JWKSetURI:      strings.TrimSpace(os.Getenv("JWT_JWK_SET_URI")),
			ClockSkew:      getEnvAsDuration("AUTH_CLOCK_SKEW", 2*time.Minute),
			BypassPaths:    getEnvAsCSV("AUTH_BYPASS_PATHS", []string{"/health", "/metrics"}),
			DefaultUserID:  getEnv("AUTH_DEFAULT_USER_ID", "local-admin"),
			DefaultEmail:   getEnv("AUTH_DEFAULT_EMAIL", ""),
			DefaultRole:    getEnv("AUTH_DEFAULT_ROLE", "admin"),
			DefaultSection: getEnv("AUTH_DEFAULT_SECTION", ""),
		},
		Log: LogSettings{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseSettings{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Database:        getEnv("DB_NAME", "glosas"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			MigrateOnStart:  getEnvAsBool("DB_MIGRATE_ON_START", true),
		},
		Remote: RemoteSettings{
			Backend:         strings.ToLower(getEnv("REMOTE_BACKEND", RemotePostgres)),
			PostgRESTURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("POSTGREST_URL")), "/"),
			APIKey:          strings.TrimSpace(os.Getenv("POSTGREST_API_KEY")),
			Timeout:         getEnvAsDuration("REMOTE_TIMEOUT", 30*time.Second),
			MaxConnsPerHost: getEnvAsInt("REMOTE_MAX_CONNS_PER_HOST", 10),
			LogBodies:       getEnvAsBool("REMOTE_LOG_BODIES", false),
			MaxBodySize:     getEnvAsInt("REMOTE_LOG_MAX_BODY_SIZE", 16384),
			BreakerFailures: getEnvAsInt("REMOTE_BREAKER_FAILURES", 5),
			BreakerCooldown: getEnvAsDuration("REMOTE_BREAKER_COOLDOWN", 30*time.Second),
		},
		LocalStore: LocalStoreSettings{
			Backend:       strings.ToLower(getEnv("LOCAL_STORE_BACKEND", LocalSQLite)),
			Path:          getEnv("LOCAL_STORE_PATH", "glosas-cache.db"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			RedisPrefix:   getEnv("REDIS_PREFIX", "glosas:"),
		},
		Sync: SyncSettings{
			FetchTimeout:    getEnvAsDuration("SYNC_FETCH_TIMEOUT", 20*time.Second),
			Retries:         getEnvAsInt("SYNC_RETRIES", 2),
			Backoff:         getEnvAsDuration("SYNC_BACKOFF", 2*time.Second),
			MutationTimeout: getEnvAsDuration("SYNC_MUTATION_TIMEOUT", 30*time.Second),
			FlagSyncRPS:     getEnvAsFloat("SYNC_FLAG_RPS", 5),
			Interval:        getEnvAsDuration("SYNC_INTERVAL", 0),
		},
		Metrics: MetricsSettings{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg AppConfig) validate() error {
	switch cfg.Remote.Backend {
	case RemotePostgres:
	case RemotePostgREST:
		if cfg.Remote.PostgRESTURL == "" {
			return errors.New("invalid config: POSTGREST_URL is required when REMOTE_BACKEND=postgrest")
		}
		if cfg.Remote.APIKey == "" {
			return errors.New("invalid config: POSTGREST_API_KEY is required when REMOTE_BACKEND=postgrest")
		}
	default:
		return fmt.Errorf("invalid config: REMOTE_BACKEND must be %q or %q, got %q", RemotePostgres, RemotePostgREST, cfg.Remote.Backend)
	}

	switch cfg.LocalStore.Backend {
	case LocalSQLite:
		if strings.TrimSpace(cfg.LocalStore.Path) == "" {
			return errors.New("invalid config: LOCAL_STORE_PATH is required when LOCAL_STORE_BACKEND=sqlite")
		}
	case LocalRedis:
		if strings.TrimSpace(cfg.LocalStore.RedisAddr) == "" {
			return errors.New("invalid config: REDIS_ADDR is required when LOCAL_STORE_BACKEND=redis")
		}
	case LocalMemory:
	default:
		return fmt.Errorf("invalid config: LOCAL_STORE_BACKEND must be sqlite, redis or memory, got %q", cfg.LocalStore.Backend)
	}

	if cfg.Sync.Retries < 0 {
		return errors.New("invalid config: SYNC_RETRIES cannot be negative")
	}
	if cfg.Sync.FetchTimeout <= 0 {
		return errors.New("invalid config: SYNC_FETCH_TIMEOUT must be greater than 0")
	}

	if cfg.Auth.Enabled {
		if cfg.Auth.IssuerURI == "" {
			return errors.New("invalid config: JWT_ISSUER_URI is required when AUTH_ENABLED=true")
		}
		if cfg.Auth.JWKSetURI == "" {
			return errors.New("invalid config: JWT_JWK_SET_URI is required when AUTH_ENABLED=true")
		}
	} else if strings.TrimSpace(cfg.Auth.DefaultUserID) == "" {
		return errors.New("invalid config: AUTH_DEFAULT_USER_ID is required when AUTH_ENABLED=false")
	}
	return nil
}

// Address returns the HTTP listen address in host:port form.
func (h HTTPSettings) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsCSV(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
