package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/relooptech/reloop/internal/auth/service"
	"github.com/relooptech/reloop/pkg/jwtx"
	"github.com/relooptech/reloop/pkg/totpx"
)

type Config struct {
	Issuer        string // Issuer claim for session tokens (default: reloop-auth)
	SigningSecret string // Required: HS256 signing secret, min 32 bytes

	TokenTTL        time.Duration // Session token lifetime (default: 12h)
	ChallengeTTL    time.Duration // Second-factor challenge lifetime (default: 5m)
	LockoutThresh   int           // Failed attempts before lockout (default: 5)
	LockoutDuration time.Duration // Lockout window (default: 30m)
	TOTPSkew        uint          // Accepted adjacent TOTP time steps (default: 1)

	DatabaseFile string // Path to SQLite database file (default: ./auth.db)
	PepperFile   string // Path to password-hash pepper file (default: ./pepper)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads configuration from the environment.
func LoadConfig() Config {
	return Config{
		Issuer:        getEnvOrDefault("AUTH_ISSUER", "reloop-auth"),
		SigningSecret: os.Getenv("AUTH_SIGNING_SECRET"),

		TokenTTL:        getEnvDurationOrDefault("AUTH_TOKEN_TTL", jwtx.DefaultSessionTTL),
		ChallengeTTL:    getEnvDurationOrDefault("AUTH_CHALLENGE_TTL", service.DefaultChallengeTTL),
		LockoutThresh:   getEnvIntOrDefault("AUTH_LOCKOUT_THRESHOLD", service.DefaultLockoutThreshold),
		LockoutDuration: getEnvDurationOrDefault("AUTH_LOCKOUT_DURATION", service.DefaultLockoutDuration),
		TOTPSkew:        uint(getEnvIntOrDefault("AUTH_TOTP_SKEW", totpx.DefaultSkew)), // #nosec G115 - small config value

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}
}

// Validate rejects configurations the service must not start with. The
// signing secret is the only hard requirement; everything else has a
// workable default.
func (c Config) Validate() error {
	if c.SigningSecret == "" {
		return fmt.Errorf("AUTH_SIGNING_SECRET is required")
	}
	if len(c.SigningSecret) < jwtx.MinSecretLength {
		return fmt.Errorf("AUTH_SIGNING_SECRET must be at least %d bytes", jwtx.MinSecretLength)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are treated as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
