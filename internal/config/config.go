package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend modes
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// Config holds application configuration
type Config struct {
	// Backend selection, fixed for the lifetime of the process
	BackendMode string
	APIBaseURL  string
	HTTPTimeout time.Duration

	// Local record store
	StoreDriver   string // "sql", "redis" or "memory"
	DatabaseType  string
	DatabasePath  string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Generation
	GeminiAPIKey   string
	GeminiModel    string
	GeminiEndpoint string
	Language       string
	GenerateLimit  int
	GenerateWindow time.Duration
	DefaultCount   int
	AdminCode      string
	AdvanceDelay   time.Duration
	FinalizeDelay  time.Duration

	// Certificates
	CertOutputDir string
	CertFontPath  string
	CertSecret    string
	CertBucket    string
	CertPublicURL string
	SESRegion     string
	SESFromEmail  string
	SESFromName   string

	// Ambient
	LogMode     string
	Debug       bool
	ServiceName string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		BackendMode: strings.ToLower(getEnv("MINDSPARK_MODE", ModeRemote)),
		APIBaseURL:  strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api"), "/"),
		HTTPTimeout: getDuration("HTTP_TIMEOUT", 60*time.Second),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", "sql")),
		DatabaseType:  getEnv("DB_TYPE", "sqlite"),
		DatabasePath:  getEnv("DB_PATH", "./mindspark.db"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		GeminiAPIKey:   getEnv("API_KEY", getEnv("GEMINI_API_KEY", "")),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiEndpoint: getEnv("GEMINI_ENDPOINT", ""),
		Language:       getEnv("QUIZ_LANGUAGE", "en"),
		GenerateLimit:  getInt("GENERATE_LIMIT", 10),
		GenerateWindow: getDuration("GENERATE_WINDOW", time.Hour),
		DefaultCount:   getInt("QUIZ_DEFAULT_COUNT", 5),
		AdminCode:      getEnv("ADMIN_CODE", "admin123"),
		AdvanceDelay:   getDuration("ADVANCE_DELAY", 1000*time.Millisecond),
		FinalizeDelay:  getDuration("FINALIZE_DELAY", 500*time.Millisecond),

		CertOutputDir: getEnv("CERT_OUTPUT_DIR", "./certificates"),
		CertFontPath:  getEnv("CERT_FONT_PATH", ""),
		CertSecret:    getEnv("CERT_SECRET", "mindspark-dev-secret"),
		CertBucket:    getEnv("CERT_GCS_BUCKET", ""),
		CertPublicURL: getEnv("CERT_PUBLIC_BASE_URL", ""),
		SESRegion:     getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:  getEnv("SES_FROM_EMAIL", ""),
		SESFromName:   getEnv("SES_FROM_NAME", "MindSpark"),

		LogMode:     getEnv("LOG_MODE", "dev"),
		Debug:       getBool("DEBUG", false),
		ServiceName: getEnv("SERVICE_NAME", "mindspark"),
	}
}

// UseRemote reports whether the remote REST backend governs this process
func (c *Config) UseRemote() bool {
	return c.BackendMode != ModeLocal
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return i
}

func getBool(key string, defaultValue bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// getDuration accepts Go duration strings ("750ms") or bare milliseconds
func getDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
