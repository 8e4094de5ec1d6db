package config

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Shahil0511/OakMirror/internal/auth"
	pkgconfig "github.com/Shahil0511/OakMirror/pkg/config"
	"github.com/Shahil0511/OakMirror/pkg/database"
)

// Config holds all configuration for the OakMirror server. It is loaded
// once at startup and passed by value to the components that need it.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"SERVICE_VERSION" envDefault:"0.1.0"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"4000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	TrustProxy      bool          `env:"TRUST_PROXY" envDefault:"false"`

	// PostgreSQL
	DatabaseURL       string `env:"DATABASE_URL"`
	PostgresHost      string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort      int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser      string `env:"POSTGRES_USER" envDefault:"oakmirror"`
	PostgresPass      string `env:"POSTGRES_PASSWORD" envDefault:"oakmirror"`
	PostgresDB        string `env:"POSTGRES_DB" envDefault:"oakmirror"`
	PostgresSSL       string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns        int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns        int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	SlowQueryThreshMS int    `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// JWT
	JWTSecret            string             `env:"JWT_SECRET"`
	JWTAccessExpiration  pkgconfig.Lifetime `env:"JWT_ACCESS_EXPIRATION" envDefault:"30m"`
	JWTRefreshExpiration pkgconfig.Lifetime `env:"JWT_REFRESH_EXPIRATION" envDefault:"7d"`
	JWTClockSkew         time.Duration      `env:"JWT_CLOCK_SKEW" envDefault:"0s"`
	BcryptCost           int                `env:"BCRYPT_COST" envDefault:"12"`

	// Redis
	RedisURL               string `env:"REDIS_URL"`
	RedisHost              string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort              int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword          string `env:"REDIS_PASSWORD"`
	RedisDB                int    `env:"REDIS_DB" envDefault:"0"`
	TokenRevocationEnabled bool   `env:"TOKEN_REVOCATION_ENABLED" envDefault:"false"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelInsecure   bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// pprof is mounted only when at least one CIDR is configured.
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`

	// Rate limits, per client IP.
	RateLimitGlobalRequests   int                `env:"RATE_LIMIT_GLOBAL_REQUESTS" envDefault:"100"`
	RateLimitGlobalWindow     pkgconfig.Lifetime `env:"RATE_LIMIT_GLOBAL_WINDOW" envDefault:"15m"`
	RateLimitRegisterRequests int                `env:"RATE_LIMIT_REGISTER_REQUESTS" envDefault:"20"`
	RateLimitRegisterWindow   pkgconfig.Lifetime `env:"RATE_LIMIT_REGISTER_WINDOW" envDefault:"15m"`
	RateLimitLoginRequests    int                `env:"RATE_LIMIT_LOGIN_REQUESTS" envDefault:"10"`
	RateLimitLoginWindow      pkgconfig.Lifetime `env:"RATE_LIMIT_LOGIN_WINDOW" envDefault:"30m"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load oakmirror config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters long, got %d", auth.MinSecretLength, len(c.JWTSecret))
	}
	if c.JWTClockSkew < 0 {
		return fmt.Errorf("JWT_CLOCK_SKEW must not be negative")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	if c.DBMinConns < 0 || c.DBMaxConns < 1 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid pool size: min %d, max %d", c.DBMinConns, c.DBMaxConns)
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be within [0, 1], got %v", c.OTelSampleRate)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	for name, n := range map[string]int{
		"RATE_LIMIT_GLOBAL_REQUESTS":   c.RateLimitGlobalRequests,
		"RATE_LIMIT_REGISTER_REQUESTS": c.RateLimitRegisterRequests,
		"RATE_LIMIT_LOGIN_REQUESTS":    c.RateLimitLoginRequests,
	} {
		if n < 1 {
			return fmt.Errorf("%s must be positive, got %d", name, n)
		}
	}
	return nil
}

// IsDevelopment reports whether the service runs in the development
// environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// TokenConfig returns the Token Service settings.
func (c *Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret:     c.JWTSecret,
		AccessTTL:  c.JWTAccessExpiration.Duration(),
		RefreshTTL: c.JWTRefreshExpiration.Duration(),
		Leeway:     c.JWTClockSkew,
	}
}

// Postgres returns the connection pool settings.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.URL = c.DatabaseURL
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	pg.MaxConns = c.DBMaxConns
	pg.MinConns = c.DBMinConns
	return pg
}

// Redis returns the Redis client settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		URL:      c.RedisURL,
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// SlowQueryThreshold returns the slow query logging threshold.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThreshMS) * time.Millisecond
}
