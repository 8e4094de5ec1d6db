package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnvs(t, map[string]string{"JWT_SECRET": validSecret})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 4000, cfg.HTTPPort)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.False(t, cfg.TokenRevocationEnabled)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.PprofAllowedCIDRs)

	tc := cfg.TokenConfig()
	assert.Equal(t, validSecret, tc.Secret)
	assert.Equal(t, 30*time.Minute, tc.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, tc.RefreshTTL)
	assert.Zero(t, tc.Leeway)

	assert.Equal(t, 100, cfg.RateLimitGlobalRequests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitGlobalWindow.Duration())
	assert.Equal(t, 20, cfg.RateLimitRegisterRequests)
	assert.Equal(t, 10, cfg.RateLimitLoginRequests)
	assert.Equal(t, 30*time.Minute, cfg.RateLimitLoginWindow.Duration())
}

func TestLoad_Overrides(t *testing.T) {
	setEnvs(t, map[string]string{
		"JWT_SECRET":             validSecret,
		"JWT_ACCESS_EXPIRATION":  "15m",
		"JWT_REFRESH_EXPIRATION": "14d",
		"JWT_CLOCK_SKEW":         "5s",
		"BCRYPT_COST":            "10",
		"HTTP_PORT":              "8080",
		"KAFKA_ENABLED":          "true",
		"KAFKA_BROKERS":          "k1:9092,k2:9092",
		"PPROF_ALLOWED_CIDRS":    "127.0.0.1/32,10.0.0.0/8",
	})

	cfg, err := Load()
	require.NoError(t, err)

	tc := cfg.TokenConfig()
	assert.Equal(t, 15*time.Minute, tc.AccessTTL)
	assert.Equal(t, 14*24*time.Hour, tc.RefreshTTL)
	assert.Equal(t, 5*time.Second, tc.Leeway)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"127.0.0.1/32", "10.0.0.0/8"}, cfg.PprofAllowedCIDRs)
}

func TestLoad_SecretRequired(t *testing.T) {
	setEnvs(t, map[string]string{"JWT_SECRET": ""})

	cfg, err := Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestLoad_ShortSecret(t *testing.T) {
	setEnvs(t, map[string]string{"JWT_SECRET": "only-twenty-chars!!!"})

	cfg, err := Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoad_InvalidLifetime(t *testing.T) {
	setEnvs(t, map[string]string{
		"JWT_SECRET":            validSecret,
		"JWT_ACCESS_EXPIRATION": "eventually",
	})

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			HTTPPort:                  4000,
			JWTSecret:                 validSecret,
			BcryptCost:                12,
			DBMaxConns:                20,
			DBMinConns:                2,
			OTelSampleRate:            1,
			RateLimitGlobalRequests:   100,
			RateLimitRegisterRequests: 20,
			RateLimitLoginRequests:    10,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.HTTPPort = 0 }, "invalid HTTP port"},
		{"port too high", func(c *Config) { c.HTTPPort = 70000 }, "invalid HTTP port"},
		{"bcrypt too low", func(c *Config) { c.BcryptCost = 3 }, "BCRYPT_COST"},
		{"bcrypt too high", func(c *Config) { c.BcryptCost = 32 }, "BCRYPT_COST"},
		{"negative skew", func(c *Config) { c.JWTClockSkew = -time.Second }, "JWT_CLOCK_SKEW"},
		{"pool min above max", func(c *Config) { c.DBMinConns = 30 }, "invalid pool size"},
		{"sample rate", func(c *Config) { c.OTelSampleRate = 1.5 }, "OTEL_SAMPLE_RATE"},
		{"kafka without brokers", func(c *Config) { c.KafkaEnabled = true }, "KAFKA_BROKERS"},
		{"zero login budget", func(c *Config) { c.RateLimitLoginRequests = 0 }, "RATE_LIMIT_LOGIN_REQUESTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_PostgresAndRedis(t *testing.T) {
	cfg := &Config{
		DatabaseURL:  "postgres://u:p@db:5432/oak",
		PostgresHost: "db",
		DBMaxConns:   5,
		DBMinConns:   1,
		RedisHost:    "cache",
		RedisPort:    6380,
		RedisDB:      2,
	}

	pg := cfg.Postgres()
	assert.Equal(t, "postgres://u:p@db:5432/oak", pg.DSN())
	assert.Equal(t, int32(5), pg.MaxConns)

	rc := cfg.Redis()
	assert.Equal(t, "cache:6380", rc.Addr())
	assert.Equal(t, 2, rc.DB)
}
