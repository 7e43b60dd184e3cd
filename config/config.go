package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/validator.v2"
)

// Config holds every setting of the application. It is built once in main and
// passed down explicitly.
type Config struct {
	Port    string
	GinMode string

	DBDriver   string `validate:"regexp=^(postgres|sqlite)$"`
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string
	DBTimeZone string
	SQLitePath string
	DBLogLevel string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret    string `validate:"nonzero"`
	SessionTTL   time.Duration
	CookieSecure bool

	QuoteProvider      string `validate:"regexp=^(alphavantage|static)$"`
	AlphaVantageAPIKey string
	AlphaVantageURL    string
	QuotesFile         string
	QuoteCacheTTL      time.Duration
	QuoteTimeout       time.Duration

	StartingCash decimal.Decimal

	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int

	KafkaBrokers []string
	KafkaTopic   string

	LoginRatePerMinute int
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: error loading .env file: %v", err)
	}

	startingCash, err := getEnvAsDecimal("STARTING_CASH", decimal.NewFromInt(10000))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "release"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "stocks"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBTimeZone: getEnv("DB_TIMEZONE", "UTC"),
		SQLitePath: getEnv("SQLITE_PATH", "stocks.db"),
		DBLogLevel: getEnv("DB_LOG_LEVEL", "warn"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		SessionTTL:   getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		CookieSecure: getEnvAsBool("COOKIE_SECURE", false),

		QuoteProvider:      getEnv("QUOTE_PROVIDER", "alphavantage"),
		AlphaVantageAPIKey: getEnv("ALPHA_VANTAGE_API_KEY", ""),
		AlphaVantageURL:    getEnv("ALPHA_VANTAGE_URL", "https://www.alphavantage.co/query"),
		QuotesFile:         getEnv("QUOTES_FILE", ""),
		QuoteCacheTTL:      getEnvAsDuration("QUOTE_CACHE_TTL", 0),
		QuoteTimeout:       getEnvAsDuration("QUOTE_TIMEOUT", 10*time.Second),

		StartingCash: startingCash,

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvAsInt("LOG_MAX_AGE", 28),

		KafkaBrokers: getEnvAsList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "trades"),

		LoginRatePerMinute: getEnvAsInt("LOGIN_RATE_PER_MINUTE", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags and the cross-field rules.
func (c *Config) Validate() error {
	if err := validator.Validate(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.QuoteProvider == "static" && c.QuotesFile == "" {
		return fmt.Errorf("invalid configuration: QUOTES_FILE is required with QUOTE_PROVIDER=static")
	}
	if c.QuoteCacheTTL > 0 && c.RedisAddr == "" {
		return fmt.Errorf("invalid configuration: QUOTE_CACHE_TTL requires REDIS_ADDR")
	}
	if c.StartingCash.IsNegative() {
		return fmt.Errorf("invalid configuration: STARTING_CASH must not be negative")
	}
	return nil
}

// PostgresDSN builds the connection string the same way for every environment.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode, c.DBTimeZone)
}

// OpenRedis connects to Redis. It returns a nil client when REDIS_ADDR is unset.
func OpenRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("invalid integer value for %s (%q), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("invalid boolean value for %s (%q), using default: %t", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("invalid duration value for %s (%q), using default: %s", key, valueStr, fallback)
	return fallback
}

func getEnvAsDecimal(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value for %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
