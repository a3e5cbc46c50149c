package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/localtime"
)

type Config struct {
	Port         string   `mapstructure:"PORT"`
	Env          string   `mapstructure:"ENV"`
	DatabaseURL  string   `mapstructure:"DATABASE_URL"`
	DBMaxConns   int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns   int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL     string   `mapstructure:"REDIS_URL"`
	AuthIssuer   string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL  string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience string   `mapstructure:"AUTH_AUDIENCE"`
	SigningKey   string   `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins  []string `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	LocalOffsetMinutes  int           `mapstructure:"LOCAL_OFFSET_MINUTES"`
	SlotHorizonDays     int           `mapstructure:"SLOT_HORIZON_DAYS"`
	SlotDurationMinutes int           `mapstructure:"SLOT_DURATION_MINUTES"`
	SlotRefreshInterval time.Duration `mapstructure:"SLOT_REFRESH_INTERVAL"`

	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`

	LogLevel       string `mapstructure:"LOG_LEVEL"`
	LogFile        string `mapstructure:"LOG_FILE"`
	LogMaxSizeMB   int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups  int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays  int    `mapstructure:"LOG_MAX_AGE_DAYS"`
	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"LOCAL_OFFSET_MINUTES", "SLOT_HORIZON_DAYS", "SLOT_DURATION_MINUTES", "SLOT_REFRESH_INTERVAL",
	"TELEGRAM_TOKEN",
	"LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
	"METRICS_ENABLED",
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("LOCAL_OFFSET_MINUTES", localtime.DefaultOffsetMinutes)
	v.SetDefault("SLOT_HORIZON_DAYS", 30)
	v.SetDefault("SLOT_DURATION_MINUTES", 30)
	v.SetDefault("SLOT_REFRESH_INTERVAL", "24h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)
	v.SetDefault("METRICS_ENABLED", true)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	origins := v.GetString("CORS_ORIGINS")
	if origins != "" {
		cfg.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks cross-field rules. Outside development a token verifier
// (signing key or JWKS endpoint) must be configured.
func (c *Config) Validate() error {
	if !c.IsDev() && c.SigningKey == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY or AUTH_JWKS_URL must be set when ENV=%q", c.Env)
	}
	if c.IsProduction() && c.SigningKey != "" && len(c.SigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters in production")
	}
	if c.LocalOffsetMinutes < -12*60 || c.LocalOffsetMinutes > 14*60 {
		return fmt.Errorf("LOCAL_OFFSET_MINUTES out of range: %d", c.LocalOffsetMinutes)
	}
	if c.SlotHorizonDays < 0 || c.SlotHorizonDays > 366 {
		return fmt.Errorf("SLOT_HORIZON_DAYS must be between 0 and 366, got %d", c.SlotHorizonDays)
	}
	if c.SlotDurationMinutes <= 0 || c.SlotDurationMinutes > 24*60 {
		return fmt.Errorf("SLOT_DURATION_MINUTES must be between 1 and 1440, got %d", c.SlotDurationMinutes)
	}
	if c.SlotRefreshInterval < 0 {
		return fmt.Errorf("SLOT_REFRESH_INTERVAL must not be negative")
	}
	return nil
}
