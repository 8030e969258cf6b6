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
	// Environment
	Production bool

	// Database
	DatabaseURL string

	// Sessions
	RedisURL   string
	SessionTTL time.Duration

	// Server
	Port               int
	StaticDir          string
	UploadDir          string
	CORSAllowedOrigins []string
	LoginRateLimit     int

	// Outbound fetches (image resolution, OpenGraph metadata)
	FetchTimeout      time.Duration
	FetchUserAgent    string
	FetchAllowPrivate bool

	// Site / feed
	SiteName        string
	SiteURL         string
	FeedDescription string
	DigestSubject   string
}

// DefaultUserAgent is sent on every outbound page fetch.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0"

// Load reads configuration from the environment, after loading a .env file if one exists
func Load() (*Config, error) {
	_ = godotenv.Load()

	siteName := getEnv("SITE_NAME", "NomadProHub")
	cfg := &Config{
		Production:         strings.EqualFold(getEnv("APP_ENV", "development"), "production"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 20*time.Minute),
		Port:               getEnvAsInt("PORT", 3000),
		StaticDir:          getEnv("STATIC_DIR", "public"),
		UploadDir:          getEnv("UPLOAD_DIR", "public/uploads"),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LoginRateLimit:     getEnvAsInt("LOGIN_RATE_LIMIT", 5),
		FetchTimeout:       getEnvAsDuration("FETCH_TIMEOUT", 10*time.Second),
		FetchUserAgent:     getEnv("FETCH_USER_AGENT", DefaultUserAgent),
		FetchAllowPrivate:  getEnvAsBool("FETCH_ALLOW_PRIVATE", false),
		SiteName:           siteName,
		SiteURL:            strings.TrimRight(getEnv("SITE_URL", "http://localhost:3000"), "/"),
		FeedDescription:    getEnv("FEED_DESCRIPTION", "Guides for digital nomads"),
		DigestSubject:      getEnv("DIGEST_SUBJECT", siteName+" Weekly Digest"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.LoginRateLimit <= 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
