package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type AppConfig struct {
	Environment    string `env:"APP_ENV" env-default:"development"`
	ServiceName    string `env:"SERVICE_NAME" env-default:"todoitems"`
	ServiceVersion string `env:"SERVICE_VERSION" env-default:"1.0.0"`

	HTTP      HTTPConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
}

type HTTPConfig struct {
	Port            string        `env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	EnforceHTTPS    bool          `env:"ENFORCE_HTTPS" env-default:"false"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
	TrustedProxies  []string      `env:"TRUSTED_PROXIES" env-separator:","`
}

type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER" env-default:"sqlite"`
	Path            string        `env:"DATABASE_PATH" env-default:"todoitems.db?_busy_timeout=5000"`
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	LogQueries      bool          `env:"DB_LOG_QUERIES" env-default:"false"`
}

type LoggingConfig struct {
	Level   string `env:"LOG_LEVEL" env-default:"info"`
	LokiURL string `env:"LOKI_URL"`
}

type TelemetryConfig struct {
	MetricsPort  string `env:"METRICS_PORT" env-default:"9091"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
}

type RateLimitConfig struct {
	Enabled  bool          `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	Store    string        `env:"RATE_LIMIT_STORE" env-default:"memory"`
	Requests int           `env:"RATE_LIMIT_REQUESTS" env-default:"60"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"1m"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// Load reads the optional env files (".env" when none is given) and then the
// process environment. Variables already set in the environment win.
func Load(envFiles ...string) (*AppConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg AppConfig

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("DATABASE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}

	switch c.RateLimit.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR is required for the redis rate limit store")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_STORE must be %q or %q, got %q", StoreMemory, StoreRedis, c.RateLimit.Store)
	}

	if c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}

	return nil
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// HelpText lists the supported environment variables.
func HelpText() (string, error) {
	var cfg AppConfig

	return cleanenv.GetDescription(&cfg, nil)
}
