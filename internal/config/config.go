// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	DatabaseURL string

	// AppBaseURL prefixes reset/verify links and gate redirects.
	AppBaseURL string
	// FrontendURL is the origin gated pages are proxied to. Empty serves a placeholder.
	FrontendURL string
	// SessionUpstreamURL points the gate at a remote get-session endpoint.
	// Empty resolves sessions in-process.
	SessionUpstreamURL string

	SessionSecret        string
	SessionCookieName    string
	SessionTTL           time.Duration
	SessionCacheTTL      time.Duration
	SessionCacheCapacity int

	ResetTokenTTL        time.Duration
	VerificationTokenTTL time.Duration
	TokenCleanupInterval time.Duration

	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPassword    string
	SMTPFrom        string
	SMTPUseTLS      bool
	EmailMaxRetries int

	CORSAllowedOrigins          []string
	ForgotPasswordRatePerMinute int

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Bucket           string
	S3PublicBaseURL    string
	AvatarMaxBytes     int64
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	port := getEnv("PORT", "8080")

	cfg := &Config{
		Port:        port,
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: databaseURL(),

		AppBaseURL:         strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		FrontendURL:        strings.TrimRight(getEnv("FRONTEND_URL", ""), "/"),
		SessionUpstreamURL: strings.TrimRight(getEnv("SESSION_UPSTREAM_URL", ""), "/"),

		SessionSecret:        getEnv("SESSION_SECRET", ""),
		SessionCookieName:    getEnv("SESSION_COOKIE_NAME", "authgate.session_token"),
		SessionTTL:           getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
		SessionCacheTTL:      getEnvAsDuration("SESSION_CACHE_TTL", 5*time.Minute),
		SessionCacheCapacity: getEnvAsInt("SESSION_CACHE_CAPACITY", 10000),

		ResetTokenTTL:        getEnvAsDuration("RESET_TOKEN_TTL", 24*time.Hour),
		VerificationTokenTTL: getEnvAsDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour),
		TokenCleanupInterval: getEnvAsDuration("TOKEN_CLEANUP_INTERVAL", time.Hour),

		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnvAsInt("SMTP_PORT", 2525),
		SMTPUser:        getEnv("SMTP_USER", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:        getEnv("SMTP_FROM", "no-reply@localhost"),
		SMTPUseTLS:      getEnvAsBool("SMTP_USE_TLS", false),
		EmailMaxRetries: getEnvAsInt("EMAIL_MAX_RETRIES", 2),

		CORSAllowedOrigins:          splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		ForgotPasswordRatePerMinute: getEnvAsInt("FORGOT_PASSWORD_RATE_PER_MINUTE", 5),

		AWSRegion:          getEnv("AWS_REGION", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3Bucket:           getEnv("S3_BUCKET_NAME", ""),
		S3PublicBaseURL:    strings.TrimRight(getEnv("S3_PUBLIC_BASE_URL", ""), "/"),
		AvatarMaxBytes:     int64(getEnvAsInt("AVATAR_MAX_BYTES", 5<<20)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		if c.IsProduction() {
			return errors.New("SESSION_SECRET is required in production")
		}
		c.SessionSecret = "development-only-session-secret"
	}
	if _, err := url.ParseRequestURI(c.AppBaseURL); err != nil {
		return fmt.Errorf("invalid APP_URL %q: %w", c.AppBaseURL, err)
	}
	if c.SessionTTL <= 0 || c.SessionCacheTTL <= 0 || c.ResetTokenTTL <= 0 || c.VerificationTokenTTL <= 0 {
		return errors.New("session and token TTLs must be positive")
	}
	if c.SessionCacheCapacity <= 0 {
		return errors.New("SESSION_CACHE_CAPACITY must be bigger than 0")
	}
	if c.AvatarMaxBytes <= 0 {
		return errors.New("AVATAR_MAX_BYTES must be bigger than 0")
	}
	return nil
}

func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(getEnv("PSQL_USER", "postgres"), getEnv("PSQL_PASSWORD", "postgres")),
		Host:   getEnv("PSQL_HOST", "localhost") + ":" + getEnv("PSQL_PORT", "5432"),
		Path:   getEnv("PSQL_DB_NAME", "authgate"),
	}
	q := u.Query()
	q.Set("sslmode", getEnv("PSQL_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
