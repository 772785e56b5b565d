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
	// Application
	Port     string
	AppEnv   string
	LogLevel string

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Auth
	JWTSecret string
	JWTTTL    time.Duration

	// Search index
	WeaviateURL     string
	WeaviateAPIKey  string
	SearchClass     string
	SearchTimeout   time.Duration
	SearchMaxWindow int

	// Cache
	RedisURL string
	CacheTTL time.Duration

	// Pagination
	PageSize int

	// Reindex
	ReindexBatchSize  int
	ReindexRatePerSec float64

	// HTTP
	CORSOrigins     []string
	MetricsUsername string
	MetricsPassword string
}

// Load reads .env when present and builds a validated Config from the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "3333"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBMaxConns:  int32(getEnvInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getEnvInt("DB_MIN_CONNS", 5)),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		WeaviateURL:     getEnv("WEAVIATE_URL", ""),
		WeaviateAPIKey:  getEnv("WEAVIATE_API_KEY", ""),
		SearchClass:     getEnv("SEARCH_CLASS", "UserIndex"),
		SearchTimeout:   getEnvDuration("SEARCH_TIMEOUT", 2*time.Second),
		SearchMaxWindow: getEnvInt("SEARCH_MAX_WINDOW", 1000),

		RedisURL: getEnv("REDIS_URL", ""),
		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		PageSize: getEnvInt("PAGE_SIZE", 20),

		ReindexBatchSize:  getEnvInt("REINDEX_BATCH_SIZE", 200),
		ReindexRatePerSec: getEnvFloat("REINDEX_RATE_PER_SEC", 50),

		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"*"}),
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS out of range: %d/%d", c.DBMinConns, c.DBMaxConns)
	}
	if c.SearchTimeout <= 0 {
		return fmt.Errorf("SEARCH_TIMEOUT must be positive")
	}
	if c.SearchMaxWindow < 1 {
		return fmt.Errorf("SEARCH_MAX_WINDOW must be positive")
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("PAGE_SIZE must be between 1 and 100")
	}
	if c.ReindexBatchSize < 1 {
		return fmt.Errorf("REINDEX_BATCH_SIZE must be positive")
	}
	if c.ReindexRatePerSec <= 0 {
		return fmt.Errorf("REINDEX_RATE_PER_SEC must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) SearchEnabled() bool {
	return c.WeaviateURL != ""
}

func (c *Config) CacheEnabled() bool {
	return c.RedisURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
