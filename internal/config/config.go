package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable (e.g. "90s") or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	ReadDSN         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN builds the primary connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers     []string
	LedgerTopic string
}

// Enabled reports whether ledger events should be published.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type RateLimitConfig struct {
	IPLimit        int
	IPWindow       time.Duration
	AuthLimit      int
	AuthWindow     time.Duration
	TransferLimit  int
	TransferWindow time.Duration
}

type LedgerConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

type Config struct {
	Port      string
	Env       string
	LogLevel  string
	JWTSecret string
	TokenTTL  time.Duration
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
	Ledger    LedgerConfig
}

// Load reads the whole configuration from the environment.
// DevJWTSecret signs tokens when JWT_SECRET is unset. Validate refuses it in
// production.
const DevJWTSecret = "walletledger-dev-secret"

// Validate reports settings the server must not start with.
func (c *Config) Validate() error {
	if c.Env == "production" && (c.JWTSecret == "" || c.JWTSecret == DevJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

func Load() *Config {
	LoadEnv()

	var brokers []string
	if raw := GetEnv("KAFKA_BROKERS", ""); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return &Config{
		Port:      GetEnv("PORT", "3000"),
		Env:       GetEnv("ENV", "development"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		JWTSecret: GetEnv("JWT_SECRET", DevJWTSecret),
		TokenTTL:  GetDurationEnv("TOKEN_TTL", 15*time.Minute),
		Database: DatabaseConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "walletledger"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			ReadDSN:         GetEnv("DB_READ_DSN", ""),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
			TTL:      GetDurationEnv("REDIS_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:     brokers,
			LedgerTopic: GetEnv("KAFKA_LEDGER_TOPIC", "ledger.transactions"),
		},
		RateLimit: RateLimitConfig{
			IPLimit:        GetIntEnv("IP_RATE_LIMIT", 20),
			IPWindow:       GetDurationEnv("IP_RATE_WINDOW", time.Minute),
			AuthLimit:      GetIntEnv("AUTH_RATE_LIMIT", 5),
			AuthWindow:     GetDurationEnv("AUTH_RATE_WINDOW", time.Minute),
			TransferLimit:  GetIntEnv("TRANSFER_RATE_LIMIT", 10),
			TransferWindow: GetDurationEnv("TRANSFER_RATE_WINDOW", time.Minute),
		},
		Ledger: LedgerConfig{
			MaxAttempts:  GetIntEnv("LEDGER_MAX_ATTEMPTS", 3),
			RetryBackoff: GetDurationEnv("LEDGER_RETRY_BACKOFF", 20*time.Millisecond),
		},
	}
}
