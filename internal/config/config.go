package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	StoreID               string
	StoreTimezone         string
	VATCacheTTLSeconds    int
	LockTTLSeconds        int
	AuthSecret            string
	AccessTokenTTLMinutes int
	ManagerPIN            string
	LogLevel              string
	LogDevelopment        bool
	OpeningVarianceAbs    decimal.Decimal
	OpeningVariancePct    decimal.Decimal
}

// Load reads configuration from the environment on top of built-in defaults.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Port:                  strings.TrimSpace(v.GetString("PORT")),
		AllowedOrigin:         v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:           strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisAddr:             strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               v.GetInt("REDIS_DB"),
		StoreID:               strings.TrimSpace(v.GetString("DEFAULT_STORE_ID")),
		StoreTimezone:         strings.TrimSpace(v.GetString("STORE_TIMEZONE")),
		VATCacheTTLSeconds:    positiveOr(v.GetInt("VAT_CACHE_TTL_SECONDS"), 300),
		LockTTLSeconds:        positiveOr(v.GetInt("LOCK_TTL_SECONDS"), 15),
		AuthSecret:            strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes: positiveOr(v.GetInt("ACCESS_TOKEN_TTL_MINUTES"), 480),
		ManagerPIN:            strings.TrimSpace(v.GetString("MANAGER_PIN")),
		LogLevel:              strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LogDevelopment:        v.GetBool("LOG_DEVELOPMENT"),
	}

	var err error
	if cfg.OpeningVarianceAbs, err = nonNegativeDecimal(v, "OPENING_VARIANCE_ABS"); err != nil {
		return Config{}, err
	}
	if cfg.OpeningVariancePct, err = nonNegativeDecimal(v, "OPENING_VARIANCE_PCT"); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	if cfg.StoreID == "" {
		cfg.StoreID = "main-store"
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DEFAULT_STORE_ID", "main-store")
	v.SetDefault("STORE_TIMEZONE", "UTC")
	v.SetDefault("VAT_CACHE_TTL_SECONDS", 300)
	v.SetDefault("LOCK_TTL_SECONDS", 15)
	v.SetDefault("AUTH_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("MANAGER_PIN", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEVELOPMENT", false)
	v.SetDefault("OPENING_VARIANCE_ABS", "50")
	v.SetDefault("OPENING_VARIANCE_PCT", "5")
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Location is the timezone business dates are evaluated in.
func (c Config) Location() (*time.Location, error) {
	name := c.StoreTimezone
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func (c Config) VATCacheTTL() time.Duration {
	return time.Duration(c.VATCacheTTLSeconds) * time.Second
}

func (c Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func positiveOr(value int, fallback int) int {
	if value < 1 {
		return fallback
	}
	return value
}

func nonNegativeDecimal(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
