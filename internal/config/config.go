// Package config loads runtime configuration from the environment.  A .env
// file in the working directory is read first when present; real
// environment variables win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/language-academy/internal/billing"
	"github.com/iliyamo/language-academy/internal/database"
	"github.com/iliyamo/language-academy/internal/logger"
)

// Config holds all runtime configuration values.
type Config struct {
	Env  string // APP_ENV: dev, test, prod
	Port string // APP_PORT

	DB database.Options

	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int

	SessionCookie   string        // name of the end-user session cookie
	AdminSessionTTL time.Duration // lifetime of admin bearer sessions

	Stripe      billing.StripeConfig
	RabbitMQURL string
	EventLogDir string

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       logger.Config
}

// Load reads .env (if any) and the environment.  Every missing or
// malformed required variable is reported in the returned error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var l loader
	cfg := Config{
		Env:  l.must("APP_ENV"),
		Port: l.must("APP_PORT"),
		DB: database.Options{
			User:     l.must("DB_USER"),
			Password: os.Getenv("DB_PASS"),
			Host:     l.must("DB_HOST"),
			Port:     l.must("DB_PORT"),
			Name:     l.must("DB_NAME"),
		},
		JWTSecret:      l.must("JWT_SECRET"),
		AccessTTLMin:   l.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: l.mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     envInt("BCRYPT_COST", 12),

		SessionCookie:   envStr("SESSION_COOKIE_NAME", "session"),
		AdminSessionTTL: envDur("ADMIN_SESSION_TTL", 8*time.Hour),

		Stripe: billing.StripeConfig{
			SecretKey:  l.must("STRIPE_SECRET_KEY"),
			SuccessURL: envStr("STRIPE_SUCCESS_URL", "http://localhost:3000/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
			CancelURL:  envStr("STRIPE_CANCEL_URL", "http://localhost:3000/checkout/cancel"),
			PriceCents: int64(envInt("SUBSCRIPTION_PRICE_CENTS", 2999)),
			Currency:   envStr("SUBSCRIPTION_CURRENCY", "usd"),
			Interval:   envStr("SUBSCRIPTION_INTERVAL", "month"),
		},
		RabbitMQURL: firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
		EventLogDir: envStr("EVENT_LOG_DIR", "logs"),

		Redis:     LoadRedisConfig(),
		RateLimit: LoadRateLimitConfig(),
		Cache:     LoadCacheConfig(),
		Log: logger.Config{
			Level:  envStr("LOG_LEVEL", "info"),
			Format: envStr("LOG_FORMAT", "text"),
		},
	}
	if l.err != nil {
		return Config{}, l.err
	}
	return cfg, nil
}

// loader accumulates errors so one run reports every bad variable.
type loader struct{ err error }

func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.err = errors.Join(l.err, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

func (l *loader) mustInt(key string) int {
	s := l.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.err = errors.Join(l.err, fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
