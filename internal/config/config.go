package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	S3        S3Config
	Checkout  CheckoutConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// S3Config holds AWS S3 configuration for promotion catalogue files.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "promotions/")
}

// CheckoutConfig tunes the checkout pipeline.
type CheckoutConfig struct {
	TaxRate            float64
	MaxDiscountPercent float64
	FraudThreshold     float64
	FraudLatency       time.Duration
	PaymentLatency     time.Duration
	ExternalTimeout    time.Duration
	LowStockThreshold  int
	PaymentPolicy      string // "tiered", "approve" or "decline"
}

// KafkaConfig holds the notification broker settings. No brokers means
// notifications are only logged.
type KafkaConfig struct {
	Brokers           []string
	NotificationTopic string
}

// RedisConfig holds the search cache settings. An empty URL disables caching.
type RedisConfig struct {
	URL            string
	SearchCacheTTL time.Duration
}

// TelemetryConfig controls tracing export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: loadDatabase(),
		Logger:   loadLogger(),
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		S3: loadS3(),
		Checkout: CheckoutConfig{
			TaxRate:            getEnvAsFloat("CHECKOUT_TAX_RATE", 0.08),
			MaxDiscountPercent: getEnvAsFloat("CHECKOUT_MAX_DISCOUNT_PERCENT", 10),
			FraudThreshold:     getEnvAsFloat("CHECKOUT_FRAUD_THRESHOLD", 0.8),
			FraudLatency:       getEnvAsDuration("CHECKOUT_FRAUD_LATENCY", 300*time.Millisecond),
			PaymentLatency:     getEnvAsDuration("CHECKOUT_PAYMENT_LATENCY", 2*time.Second),
			ExternalTimeout:    getEnvAsDuration("CHECKOUT_EXTERNAL_TIMEOUT", 10*time.Second),
			LowStockThreshold:  getEnvAsInt("CHECKOUT_LOW_STOCK_THRESHOLD", 5),
			PaymentPolicy:      getEnv("PAYMENT_POLICY", "tiered"),
		},
		Kafka: KafkaConfig{
			Brokers:           getEnvAsSlice("KAFKA_BROKERS", nil),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "order.notifications"),
		},
		Redis: RedisConfig{
			URL:            getEnv("REDIS_URL", ""),
			SearchCacheTTL: getEnvAsDuration("SEARCH_CACHE_TTL", 30*time.Second),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvAsBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "marketplace"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadTool loads the subset of configuration used by the command line tools,
// which need neither an API key nor the HTTP server settings.
func LoadTool() (*Config, error) {
	cfg := &Config{
		Database: loadDatabase(),
		Logger:   loadLogger(),
		S3:       loadS3(),
	}

	if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.Database == "" {
		return nil, fmt.Errorf("incomplete database settings")
	}
	if cfg.S3.Enabled && cfg.S3.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required when S3 is enabled")
	}

	return cfg, nil
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "marketplace"),
		MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
		MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
		MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
	}
}

func loadLogger() LoggerConfig {
	return LoggerConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}
}

func loadS3() S3Config {
	return S3Config{
		Enabled: getEnvAsBool("S3_ENABLED", false),
		Bucket:  getEnv("S3_BUCKET", ""),
		Region:  getEnv("S3_REGION", "us-east-1"),
		Prefix:  getEnv("S3_PREFIX", "promotions/"),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Checkout.TaxRate < 0 {
		return fmt.Errorf("checkout tax rate cannot be negative")
	}

	if c.Checkout.MaxDiscountPercent < 0 || c.Checkout.MaxDiscountPercent > 100 {
		return fmt.Errorf("invalid max discount percent: %v (must be between 0 and 100)", c.Checkout.MaxDiscountPercent)
	}

	if c.Checkout.FraudThreshold < 0 || c.Checkout.FraudThreshold > 1 {
		return fmt.Errorf("invalid fraud threshold: %v (must be between 0 and 1)", c.Checkout.FraudThreshold)
	}

	if c.Checkout.ExternalTimeout <= 0 {
		return fmt.Errorf("checkout external timeout must be positive")
	}

	switch c.Checkout.PaymentPolicy {
	case "tiered", "approve", "decline":
	default:
		return fmt.Errorf("invalid payment policy: %s (must be tiered, approve, or decline)", c.Checkout.PaymentPolicy)
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.NotificationTopic == "" {
		return fmt.Errorf("kafka notification topic is required when brokers are set")
	}

	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return fmt.Errorf("telemetry service name is required when telemetry is enabled")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings such as "300ms" or "2s".
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice splits a comma separated variable, dropping empty entries.
func getEnvAsSlice(key string, defaultValue []string) []string {
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
	return out
}
