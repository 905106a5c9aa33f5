package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string

	// AppID namespaces checkout references on a webhook endpoint that may
	// be shared across deployments.
	AppID                string
	StripeSecretKey      string
	StripeEndpointSecret string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	NewUserCredits   int
	MaxDailyDemoUses int

	WorkerPollInterval time.Duration
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		AppID:                getEnv("APP_ID", "oracle"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripeEndpointSecret: os.Getenv("STRIPE_PAYMENT_ENDPOINT_SECRET"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		NewUserCredits:       getEnvInt("NEW_USER_CREDITS", 0),
		MaxDailyDemoUses:     getEnvInt("MAX_DAILY_DEMO_USES", 100),
		WorkerPollInterval:   time.Second * time.Duration(getEnvInt("WORKER_POLL_INTERVAL_SECONDS", 30)),
		HTTPReadTimeout:      time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:     time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:      time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:      getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.StripeEndpointSecret == "" {
		return nil, fmt.Errorf("STRIPE_PAYMENT_ENDPOINT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
