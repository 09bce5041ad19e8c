package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/utafrali/PostsGo/pkg/database"
	pkgconfig "github.com/utafrali/PostsGo/pkg/config"
)

const (
	defaultAccessSecret  = "change-this-access-token-secret"
	defaultRefreshSecret = "change-this-refresh-token-secret"
	minSecretLength      = 32
)

// Config holds all configuration for the posts API.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"posts-api"`
	Version     string `env:"SERVICE_VERSION" envDefault:"0.1.0"`

	// HTTP server
	HTTPPort           int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout        time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout       time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout    time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
	PprofAllowedCIDRs  []string      `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8" envSeparator:","`

	// Session cookies
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"false"`
	CookieSameSite string `env:"COOKIE_SAMESITE" envDefault:"lax"`

	// PostgreSQL
	PostgresHost       string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort       int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser       string        `env:"POSTGRES_USER" envDefault:"posts"`
	PostgresPass       string        `env:"POSTGRES_PASSWORD" envDefault:"posts_secret"`
	PostgresDB         string        `env:"POSTGRES_DB" envDefault:"posts"`
	PostgresSSL        string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns   int32         `env:"POSTGRES_MAX_CONNS" envDefault:"25"`
	PostgresMinConns   int32         `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	PostgresConnLife   time.Duration `env:"POSTGRES_MAX_CONN_LIFETIME" envDefault:"1h"`
	PostgresConnIdle   time.Duration `env:"POSTGRES_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Tokens
	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET" envDefault:"change-this-access-token-secret"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET" envDefault:"change-this-refresh-token-secret"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"24h"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`

	// Redis post list cache
	RedisEnabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	PostsCacheTTL time.Duration `env:"POSTS_CACHE_TTL" envDefault:"30s"`

	// Kafka domain events
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load posts config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and, outside development, that real secrets were
// supplied.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.AccessTokenExpiry <= 0 || c.RefreshTokenExpiry <= 0 {
		return errors.New("token expiries must be positive")
	}
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must not be empty")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	switch c.CookieSameSite {
	case "lax", "strict", "none":
	default:
		return fmt.Errorf("invalid COOKIE_SAMESITE %q: want lax, strict or none", c.CookieSameSite)
	}
	if c.CookieSameSite == "none" && !c.CookieSecure {
		return errors.New("COOKIE_SAMESITE=none requires COOKIE_SECURE=true")
	}

	if c.IsDevelopment() {
		return nil
	}
	for name, secret := range map[string]string{
		"ACCESS_TOKEN_SECRET":  c.AccessTokenSecret,
		"REFRESH_TOKEN_SECRET": c.RefreshTokenSecret,
	} {
		if secret == defaultAccessSecret || secret == defaultRefreshSecret {
			return fmt.Errorf("%s must be explicitly set via environment variable in %q mode", name, c.Environment)
		}
		if len(secret) < minSecretLength {
			return fmt.Errorf("%s must be at least %d characters long, got %d", name, minSecretLength, len(secret))
		}
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Postgres returns the connection settings for database.NewPostgresPool.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.PostgresMaxConns,
		MinConns:        c.PostgresMinConns,
		MaxConnLifetime: c.PostgresConnLife,
		MaxConnIdleTime: c.PostgresConnIdle,
	}
}

// Redis returns the connection settings for database.NewRedisClient.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:        c.RedisHost,
		Port:        c.RedisPort,
		Password:    c.RedisPassword,
		DB:          c.RedisDB,
		DialTimeout: 5 * time.Second,
	}
}
