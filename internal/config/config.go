package config

import (
	"fmt"
	"log"
	"os"

	"refund-billing-service/internal/models"
)

// Config holds all configuration for the refund billing service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// NATS (empty disables event publishing)
	NATSURL string

	// Notification service for merchant update emails
	NotificationServiceURL string

	// Admin console authentication
	AdminAPIKey string

	// Gateway selection: RAZORPAY (default) or STRIPE
	GatewayType string

	// Razorpay (primary)
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	RazorpayPlanIDs       map[models.PlanType]string

	// Stripe (alternate)
	StripePublicKey     string
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceIDs      map[models.PlanType]string

	// Optional JSON plan-table override (replaces the built-in catalog)
	PlanTableJSON string
}

// buildDatabaseURL constructs the database URL from individual components
func buildDatabaseURL() string {
	// First check if DATABASE_URL is explicitly set
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	// Build from components
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "password")
	dbname := getEnv("DB_NAME", "refund_billing")
	sslmode := getEnv("DB_SSLMODE", "disable")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, dbname, sslmode)
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		Port:        getEnv("PORT", "8094"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: buildDatabaseURL(),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		NATSURL:     getEnv("NATS_URL", ""),

		NotificationServiceURL: getEnv("NOTIFICATION_SERVICE_URL", ""),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),

		GatewayType: getEnv("GATEWAY_TYPE", "RAZORPAY"),

		// Razorpay
		RazorpayKeyID:         getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
		RazorpayWebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
		RazorpayPlanIDs: map[models.PlanType]string{
			models.PlanStartup: getEnv("RAZORPAY_PLAN_STARTUP", ""),
			models.PlanGrowth:  getEnv("RAZORPAY_PLAN_GROWTH", ""),
			models.PlanScale:   getEnv("RAZORPAY_PLAN_SCALE", ""),
		},

		// Stripe
		StripePublicKey:     getEnv("STRIPE_PUBLIC_KEY", ""),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceIDs: map[models.PlanType]string{
			models.PlanStartup: getEnv("STRIPE_PRICE_STARTUP", ""),
			models.PlanGrowth:  getEnv("STRIPE_PRICE_GROWTH", ""),
			models.PlanScale:   getEnv("STRIPE_PRICE_SCALE", ""),
		},

		PlanTableJSON: getEnv("PLAN_TABLE_JSON", ""),
	}

	// Validate required fields
	if config.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if config.AdminAPIKey == "" && config.Environment != "development" {
		log.Fatal("ADMIN_API_KEY is required outside development")
	}

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
