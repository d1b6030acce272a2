package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gheop3s/gheop3s/internal/domain/screening"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	DrugCacheTTL      time.Duration `mapstructure:"DRUG_CACHE_TTL"`
	AuthIssuer        string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience      string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey    string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	CatalogPath       string        `mapstructure:"CATALOG_PATH"`
	AnyIntervalPolicy string        `mapstructure:"ANY_INTERVAL_POLICY"`
	DosageTolerance   float64       `mapstructure:"DOSAGE_TOLERANCE"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
	ImportBodyLimit   string        `mapstructure:"IMPORT_BODY_LIMIT"`
}

var envKeys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "DRUG_CACHE_TTL",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "CATALOG_PATH",
	"ANY_INTERVAL_POLICY", "DOSAGE_TOLERANCE",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"BODY_LIMIT", "IMPORT_BODY_LIMIT",
}

// Load reads configuration from the environment, falling back to a .env
// file in the working directory when one exists.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DRUG_CACHE_TTL", "10m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("ANY_INTERVAL_POLICY", screening.AnyIntervalZeroRate.String())
	v.SetDefault("DOSAGE_TOLERANCE", screening.DefaultDosageTolerance)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("IMPORT_BODY_LIMIT", "32M")

	// Bind explicitly so Unmarshal sees keys that only exist in the environment.
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// A missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level returns the configured log level, or info when LOG_LEVEL is empty.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// Normalizer builds the dosage normalizer from ANY_INTERVAL_POLICY and
// DOSAGE_TOLERANCE.
func (c *Config) Normalizer() (screening.Normalizer, error) {
	policy, err := screening.ParseAnyIntervalPolicy(c.AnyIntervalPolicy)
	if err != nil {
		return screening.Normalizer{}, fmt.Errorf("ANY_INTERVAL_POLICY: %w", err)
	}
	return screening.Normalizer{AnyPolicy: policy, Tolerance: c.DosageTolerance}, nil
}

// Validate checks that the configuration is safe to run. Outside development
// AUTH_SIGNING_KEY must be set so that bearer tokens are verified.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY must be set when ENV=%q; "+
			"refusing to start without authentication configuration", c.Env)
	}
	if c.DBMaxConns < 0 || c.DBMinConns < 0 || (c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns) {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.DrugCacheTTL <= 0 && c.RedisURL != "" {
		return fmt.Errorf("DRUG_CACHE_TTL must be positive when REDIS_URL is set")
	}
	if c.DosageTolerance < 0 {
		return fmt.Errorf("DOSAGE_TOLERANCE must not be negative, got %g", c.DosageTolerance)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.Normalizer(); err != nil {
		return err
	}
	return nil
}
