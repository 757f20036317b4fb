package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewPricingDefaults),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel  string
	LogFormat string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr string

	Routing    RoutingConfig
	Processing ProcessingConfig
	Credit     CreditConfig

	PricingDefaultsPath string
}

// RoutingConfig configures the external routing provider.
type RoutingConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ProcessingConfig bounds the distance-resolution run.
type ProcessingConfig struct {
	Watchdog      time.Duration
	ProviderDelay time.Duration
	CacheTimeout  time.Duration
	LegChunkSize  int
}

// CreditConfig bounds the optimistic balance update.
type CreditConfig struct {
	MaxRetries int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "kilomet"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "kilomet"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		RedisAddr: strings.TrimSpace(getenv("REDIS_ADDR", "")),

		Routing: RoutingConfig{
			BaseURL: getenv("ROUTING_BASE_URL", "https://api.distance.example.com/v1/route"),
			APIKey:  strings.TrimSpace(getenv("ROUTING_API_KEY", "")),
			Timeout: getenvDuration("ROUTING_TIMEOUT", 10*time.Second),
		},
		Processing: ProcessingConfig{
			Watchdog:      getenvDuration("PROCESSING_WATCHDOG", 10*time.Minute),
			ProviderDelay: getenvDuration("PROCESSING_PROVIDER_DELAY", 200*time.Millisecond),
			CacheTimeout:  getenvDuration("PROCESSING_CACHE_TIMEOUT", 2*time.Second),
			LegChunkSize:  getenvInt("PROCESSING_LEG_CHUNK_SIZE", 200),
		},
		Credit: CreditConfig{
			MaxRetries: getenvInt("CREDIT_MAX_RETRIES", 1),
		},

		PricingDefaultsPath: strings.TrimSpace(getenv("PRICING_DEFAULTS_PATH", "")),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
