package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port           string
	Env            string
	AllowedOrigins []string

	// Storage configuration
	StoreDriver    string
	DatabaseURL    string
	MigrateOnStart bool

	// Redis configuration (empty URL disables the idempotent response cache)
	RedisURL            string
	RedisPassword       string
	IdempotencyCacheTTL time.Duration

	// JWT configuration
	JWTSecret string

	// Two-person approval thresholds (USD, inclusive)
	Approval ApprovalPolicy

	// Optional administrator created at startup when missing
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		StoreDriver:         getEnv("STORE_DRIVER", StoreDriverPostgres),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		MigrateOnStart:      getEnvAsBool("MIGRATE_ON_START", true),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		IdempotencyCacheTTL: getEnvAsDuration("IDEMPOTENCY_CACHE_TTL", 24*time.Hour),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		Approval:            DefaultApprovalPolicy(),

		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
	}

	cfg.AllowedOrigins = []string{"http://localhost:5173"}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = []string{origins}
	}

	var err error
	if cfg.Approval.WalletAdjustment, err = getEnvAsDecimal("WALLET_ADJUSTMENT_APPROVAL_THRESHOLD", cfg.Approval.WalletAdjustment); err != nil {
		return nil, err
	}
	if cfg.Approval.DistributePayouts, err = getEnvAsDecimal("PAYOUT_APPROVAL_THRESHOLD", cfg.Approval.DistributePayouts); err != nil {
		return nil, err
	}

	if path := os.Getenv("APPROVAL_POLICY_PATH"); path != "" {
		policy, err := LoadApprovalPolicy(path)
		if err != nil {
			return nil, err
		}
		cfg.Approval = policy.MergeOver(cfg.Approval)
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.BootstrapAdminEmail != "" && len(c.BootstrapAdminPassword) < 8 {
		return fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD must be at least 8 characters when BOOTSTRAP_ADMIN_EMAIL is set")
	}

	return c.Approval.Validate()
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsDecimal gets an environment variable as a decimal; a malformed value is an error
// because thresholds guard money movement
func getEnvAsDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q: %w", key, value, err)
	}
	return d, nil
}
