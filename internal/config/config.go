package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Locking  LockingConfig
	Payment  PaymentConfig
	Workers  WorkersConfig
	Notify   NotifyConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        string
	Environment string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// StoreConfig selects the persistence driver. The memory driver keeps all
// state in process and exists for local development and load drills.
type StoreConfig struct {
	Driver string // "postgres" or "memory"
}

// LockingConfig tunes the room lock manager
type LockingConfig struct {
	AcquireTimeout time.Duration
	StaleLockAge   time.Duration
}

// PaymentConfig holds gateway routing and credential configuration
type PaymentConfig struct {
	MaxFailures    int
	ProbeInterval  time.Duration
	PaymentTimeout time.Duration
	Currency       string
	StripeAPIKey   string
	StripeBaseURL  string
	PayPalClientID string
	PayPalSecret   string
	PayPalBaseURL  string
}

// WorkersConfig sizes the worker pools
type WorkersConfig struct {
	BookingWorkers    int
	BookingQueueDepth int
	EffectWorkers     int
	EffectQueueDepth  int
}

// NotifyConfig holds notification delivery configuration
type NotifyConfig struct {
	WebhookURL string
	APIKey     string
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables, with .env support
// for local development
func Load() (*Config, error) {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvInt("DB_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "postgres"),
		},
		Locking: LockingConfig{
			AcquireTimeout: getEnvDuration("LOCK_ACQUIRE_TIMEOUT", 30*time.Second),
			StaleLockAge:   getEnvDuration("LOCK_STALE_AGE", 10*time.Minute),
		},
		Payment: PaymentConfig{
			MaxFailures:    getEnvInt("PAYMENT_MAX_FAILURES", 3),
			ProbeInterval:  getEnvDuration("PAYMENT_PROBE_INTERVAL", time.Minute),
			PaymentTimeout: getEnvDuration("PAYMENT_TIMEOUT", 30*time.Second),
			Currency:       getEnv("PAYMENT_CURRENCY", "USD"),
			StripeAPIKey:   getEnv("STRIPE_API_KEY", ""),
			StripeBaseURL:  getEnv("STRIPE_BASE_URL", ""),
			PayPalClientID: getEnv("PAYPAL_CLIENT_ID", ""),
			PayPalSecret:   getEnv("PAYPAL_CLIENT_SECRET", ""),
			PayPalBaseURL:  getEnv("PAYPAL_BASE_URL", ""),
		},
		Workers: WorkersConfig{
			BookingWorkers:    getEnvInt("BOOKING_WORKERS", 10),
			BookingQueueDepth: getEnvInt("BOOKING_QUEUE_DEPTH", 100),
			EffectWorkers:     getEnvInt("EFFECT_WORKERS", 10),
			EffectQueueDepth:  getEnvInt("EFFECT_QUEUE_DEPTH", 200),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			APIKey:     getEnv("NOTIFY_API_KEY", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case "memory":
		// no external dependencies
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (expected postgres or memory)", c.Store.Driver)
	}

	if c.Locking.AcquireTimeout <= 0 {
		return fmt.Errorf("LOCK_ACQUIRE_TIMEOUT must be positive")
	}
	if c.Payment.MaxFailures <= 0 {
		return fmt.Errorf("PAYMENT_MAX_FAILURES must be positive")
	}
	if c.Payment.PaymentTimeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be positive")
	}
	if c.Workers.BookingWorkers <= 0 || c.Workers.EffectWorkers <= 0 {
		return fmt.Errorf("worker pool sizes must be positive")
	}
	return nil
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
