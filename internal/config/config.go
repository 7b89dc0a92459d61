package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// MinJWTSecretLength is the shortest accepted HMAC signing secret.
	MinJWTSecretLength = 32
	minBcryptCost      = 10
	maxBcryptCost      = 31
)

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigins []string
	TrustedProxies     []string
	RateLimitRPM       int

	// Database
	SQLiteDBPath string

	// Auth
	JWTSecret        string
	TokenTTL         time.Duration
	BcryptCost       int
	AuthMode         string
	DevUserID        string
	LoginMaxFailures int
	LoginLockout     time.Duration

	// AMQP; an empty URL disables ledger events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),
		RateLimitRPM:       getEnvInt("RATE_LIMIT_RPM", 60),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),

		JWTSecret:        os.Getenv("JWT_SECRET"),
		TokenTTL:         getEnvDuration("TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:       getEnvInt("BCRYPT_COST", minBcryptCost),
		AuthMode:         strings.ToLower(getEnv("AUTH_MODE", "strict")),
		DevUserID:        getEnv("DEV_USER_ID", "dev-user"),
		LoginMaxFailures: getEnvInt("LOGIN_MAX_FAILURES", 5),
		LoginLockout:     getEnvDuration("LOGIN_LOCKOUT", 15*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// EventsEnabled reports whether ledger events should be published.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the API server configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	errors = append(errors, c.validateStore()...)

	// No fallback secret: tokens signed with a well-known key are forgeable.
	if c.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	} else if len(c.JWTSecret) < MinJWTSecretLength {
		errors = append(errors, fmt.Sprintf("JWT_SECRET too short: must be at least %d bytes", MinJWTSecretLength))
	}

	if c.TokenTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}

	if c.BcryptCost < minBcryptCost || c.BcryptCost > maxBcryptCost {
		errors = append(errors, fmt.Sprintf("invalid bcrypt cost %d: must be between %d and %d", c.BcryptCost, minBcryptCost, maxBcryptCost))
	}

	switch c.AuthMode {
	case "strict":
	case "open":
		if strings.TrimSpace(c.DevUserID) == "" {
			errors = append(errors, "DEV_USER_ID cannot be empty in open auth mode")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid auth mode '%s': must be 'strict' or 'open'", c.AuthMode))
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}
	if c.LoginMaxFailures < 1 {
		errors = append(errors, fmt.Sprintf("invalid login max failures %d: must be at least 1", c.LoginMaxFailures))
	}
	if c.LoginLockout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid login lockout %v: must be at least 1 second", c.LoginLockout))
	}

	for _, p := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be an IP or CIDR", p))
		}
	}

	if c.AMQPURL != "" {
		errors = append(errors, c.validateAMQP()...)
	}

	return combine(errors)
}

// ValidateWorker validates the subset used by the audit worker, which needs
// the store and a broker but never signs tokens.
func (c *Config) ValidateWorker() error {
	errors := c.validateStore()
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	} else {
		errors = append(errors, c.validateAMQP()...)
	}
	return combine(errors)
}

func (c *Config) validateStore() []string {
	var errors []string
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
		return errors
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}
	return errors
}

func (c *Config) validateAMQP() []string {
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func combine(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
