package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	MySQLDSN      string
	RunMigrations bool

	RedisAddr     string
	RedisPassword string

	// Empty disables event publishing.
	AMQPURL string

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	SuccessURL          string
	CancelURL           string
	SessionTTL          time.Duration

	UpstreamTimeout time.Duration

	GuestCookieName   string
	GuestCookieTTL    time.Duration
	GuestCookieSecure bool

	CatalogCacheTTL time.Duration
}

// Load reads the environment, after applying an optional .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		GRPCAddr: getenv("GRPC_ADDR", ":50051"),

		MySQLDSN:      getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/storefront?parseTime=true"),
		RunMigrations: getenvBool("RUN_MIGRATIONS", true),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		AMQPURL: os.Getenv("AMQP_URL"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            strings.ToLower(getenv("CHECKOUT_CURRENCY", "usd")),
		SuccessURL:          getenv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:           getenv("CHECKOUT_CANCEL_URL", "http://localhost:3000/cart"),
		SessionTTL:          getenvDuration("CHECKOUT_SESSION_TTL", 30*time.Minute),

		UpstreamTimeout: getenvDuration("UPSTREAM_TIMEOUT", 10*time.Second),

		GuestCookieName:   getenv("GUEST_COOKIE_NAME", "guest_id"),
		GuestCookieTTL:    getenvDuration("GUEST_COOKIE_TTL", 7*24*time.Hour),
		GuestCookieSecure: getenvBool("GUEST_COOKIE_SECURE", false),

		CatalogCacheTTL: getenvDuration("CATALOG_CACHE_TTL", time.Minute),
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.MySQLDSN == "" {
		errs = append(errs, errors.New("MYSQL_DSN is required"))
	}
	if c.StripeSecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.StripeWebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	return errors.Join(errs...)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func getenvBool(k string, def bool) bool {
	b, err := strconv.ParseBool(getenv(k, ""))
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getenv(k, ""))
	if err != nil {
		return def
	}
	return d
}
