package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	JWTSecret       string
	FrontendURL     string
	MongoDBURI      string
	MongoDBDatabase string
	LogLevel        string

	// Redis is optional; an empty address disables the grouping cache.
	RedisAddress     string
	RedisPassword    string
	RedisDB          int
	GroupingCacheTTL time.Duration

	ClassifierProvider string
	ClassifierAPIKey   string
	ClassifierModel    string
	ClassifierBaseURL  string
	ClassifierURL      string
	ClassifierTimeout  time.Duration

	ReasonsTopK       int
	ReasonsFlatLimit  int
	MessageFetchLimit int64
	ReasonFetchLimit  int64
	LookupChunkSize   int

	// ReportWarmInterval of zero disables the background warmer.
	ReportWarmInterval time.Duration

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

func Load() *Config {
	envErr := godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		JWTSecret:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3000"),
		MongoDBURI:      getEnv("MONGODB_URI", ""),
		MongoDBDatabase: getEnv("MONGODB_DATABASE", "helpdesk"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		RedisAddress:     getEnv("REDIS_ADDRESS", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		GroupingCacheTTL: getEnvDuration("GROUPING_CACHE_TTL", 6*time.Hour),

		ClassifierProvider: strings.ToLower(getEnv("CLASSIFIER_PROVIDER", "local")),
		ClassifierAPIKey:   getEnv("CLASSIFIER_API_KEY", ""),
		ClassifierModel:    getEnv("CLASSIFIER_MODEL", ""),
		ClassifierBaseURL:  getEnv("CLASSIFIER_BASE_URL", ""),
		ClassifierURL:      getEnv("CLASSIFIER_URL", ""),
		ClassifierTimeout:  getEnvDuration("CLASSIFIER_TIMEOUT", 15*time.Second),

		ReasonsTopK:       getEnvInt("REASONS_TOP_K", 6),
		ReasonsFlatLimit:  getEnvInt("REASONS_FLAT_LIMIT", 8),
		MessageFetchLimit: int64(getEnvInt("MESSAGE_FETCH_LIMIT", 1000)),
		ReasonFetchLimit:  int64(getEnvInt("REASON_FETCH_LIMIT", 500)),
		LookupChunkSize:   getEnvInt("LOOKUP_CHUNK_SIZE", 50),

		ReportWarmInterval: getEnvDuration("REPORT_WARM_INTERVAL", 0),

		EnvFileLoaded: envErr == nil,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt falls back to defaultValue when the variable is unset or not a number.
func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}
