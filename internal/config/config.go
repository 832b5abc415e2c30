package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Logging
	LogLevel    string
	LogFormat   string
	LogFile     string
	DebugErrors bool

	// History store
	StoreBackend  string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string
	SQLitePath    string

	// Redis (optional; enables the shared history lock and event fan-out)
	RedisURL           string
	HistoryLockTimeout time.Duration

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// HTTP
	GenerateRateLimit int
	CORSOrigins       []string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	env := getEnvOrDefault("ENV", "development")
	defaultFormat := "json"
	if env == "development" {
		defaultFormat = "console"
	}

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "3000"),
		Env:                  env,
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", defaultFormat),
		LogFile:              os.Getenv("LOG_FILE"),
		DebugErrors:          getEnvAsBoolOrDefault("DEBUG_ERRORS", false),
		StoreBackend:         strings.ToLower(getEnvOrDefault("STORE_BACKEND", "mongo")),
		MongoURI:             os.Getenv("MONGO_URI"),
		MongoDatabase:        getEnvOrDefault("MONGO_DATABASE", "chatbot"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		SQLitePath:           getEnvOrDefault("SQLITE_PATH", "./data/chat.db"),
		RedisURL:             os.Getenv("REDIS_URL"),
		HistoryLockTimeout:   getEnvAsDurationOrDefault("HISTORY_LOCK_TIMEOUT", 5*time.Second),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		GenerateRateLimit:    getEnvAsIntOrDefault("GENERATE_RATE_LIMIT", 30),
		CORSOrigins:          splitList(getEnvOrDefault("CORS_ORIGINS", "*")),
	}

	return cfg
}

// Validate reports settings the server cannot start with. A missing Gemini
// key is allowed: every turn then fails with a provider error.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for store backend %q", c.StoreBackend)
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for store backend %q", c.StoreBackend)
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.GeminiConcurrentReqs < 1 {
		return fmt.Errorf("GEMINI_CONCURRENT_REQUESTS must be positive, got %d", c.GeminiConcurrentReqs)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
