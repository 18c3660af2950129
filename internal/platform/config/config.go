package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	// Invoicing defaults
	DefaultCurrency string
	DefaultTaxRate  decimal.Decimal

	// Currency conversion
	RateProviderURL string
	RateCacheTTL    time.Duration
	RedisAddr       string

	// Automation sweeps
	SweepBatchSize        int
	DueSoonWindowDays     int
	ReminderCooldown      time.Duration
	FollowUpCooldown      time.Duration
	FollowUpAfterDays     int
	MicroSweepOverdueMax  int
	MicroSweepReminderMax int
	MicroSweepGenerateMax int

	// HTTP
	RateLimit string // ulule/limiter format, e.g. "100-M"
}

// LoadConfig loads configuration from environment variables and a .env
// file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "billingo-backend")
	viper.SetDefault("DEFAULT_CURRENCY", "USD")
	viper.SetDefault("DEFAULT_TAX_RATE", "0.10")
	viper.SetDefault("RATE_PROVIDER_URL", "https://open.er-api.com/v6/latest")
	viper.SetDefault("RATE_CACHE_TTL", "24h")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("SWEEP_BATCH_SIZE", 200)
	viper.SetDefault("DUE_SOON_WINDOW_DAYS", 7)
	viper.SetDefault("REMINDER_COOLDOWN", "168h")
	viper.SetDefault("FOLLOW_UP_COOLDOWN", "336h")
	viper.SetDefault("FOLLOW_UP_AFTER_DAYS", 14)
	viper.SetDefault("MICRO_SWEEP_OVERDUE_MAX", 10)
	viper.SetDefault("MICRO_SWEEP_REMINDER_MAX", 5)
	viper.SetDefault("MICRO_SWEEP_GENERATE_MAX", 3)
	viper.SetDefault("RATE_LIMIT", "100-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if !cfg.IsProduction && cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET not set. Using default insecure key.")
	}
	cfg.JWTExpiryDuration = parseDurationOr("JWT_EXPIRY_DURATION", time.Hour)
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.DefaultCurrency = viper.GetString("DEFAULT_CURRENCY")
	taxRateStr := viper.GetString("DEFAULT_TAX_RATE")
	taxRate, err := decimal.NewFromString(taxRateStr)
	if err != nil {
		taxRate = decimal.RequireFromString("0.10")
		log.Printf("Warning: Invalid value for DEFAULT_TAX_RATE ('%s'). Defaulting to %s.\n", taxRateStr, taxRate)
	}
	cfg.DefaultTaxRate = taxRate

	cfg.RateProviderURL = viper.GetString("RATE_PROVIDER_URL")
	cfg.RateCacheTTL = parseDurationOr("RATE_CACHE_TTL", 24*time.Hour)
	cfg.RedisAddr = viper.GetString("REDIS_ADDR")

	cfg.SweepBatchSize = viper.GetInt("SWEEP_BATCH_SIZE")
	cfg.DueSoonWindowDays = viper.GetInt("DUE_SOON_WINDOW_DAYS")
	cfg.ReminderCooldown = parseDurationOr("REMINDER_COOLDOWN", 7*24*time.Hour)
	cfg.FollowUpCooldown = parseDurationOr("FOLLOW_UP_COOLDOWN", 14*24*time.Hour)
	cfg.FollowUpAfterDays = viper.GetInt("FOLLOW_UP_AFTER_DAYS")
	cfg.MicroSweepOverdueMax = viper.GetInt("MICRO_SWEEP_OVERDUE_MAX")
	cfg.MicroSweepReminderMax = viper.GetInt("MICRO_SWEEP_REMINDER_MAX")
	cfg.MicroSweepGenerateMax = viper.GetInt("MICRO_SWEEP_GENERATE_MAX")

	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	return cfg, nil
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}
