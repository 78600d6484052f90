package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Env                 string
	Server              ServerConfig
	Database            DatabaseConfig
	Redis               RedisConfig
	Kafka               KafkaConfig
	POS                 POSConfig
	DistanceService     ServiceConfig
	NotificationService ServiceConfig
	Pricing             PricingConfig
	Worker              WorkerConfig
	Auth                AuthConfig
	RateLimit           RateLimitConfig
	Features            FeatureFlags
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

// URL returns the connection string in URL form, as golang-migrate expects.
func (d DatabaseConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" +
		strconv.Itoa(d.Port) + "/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	OrdersTopic   string
	PaymentsTopic string
	ConsumerGroup string
}

type ServiceConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type POSConfig struct {
	BaseURL     string
	AccessToken string
	LocationID  string
	Timeout     time.Duration
	Timezone    string
}

type PricingConfig struct {
	TaxRate  decimal.Decimal
	Currency string
}

type WorkerConfig struct {
	PollInterval  time.Duration
	BatchSize     int
	MaxAttempts   int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
	Lease         time.Duration
	RatePerSecond float64
	NotifyTimeout time.Duration
}

type AuthConfig struct {
	JWTSecret string
	AdminRole string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type FeatureFlags struct {
	EnableOrderEvents  bool
	EnableOrderCaching bool
	EnablePOSSync      bool
}

// Load reads configuration from the environment, after loading a .env file
// if one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env: getEnvString("APP_ENV", "development"),
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 8082),
			ReadTimeout:     time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout:    time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
			ShutdownTimeout: time.Duration(getEnvInt("SERVER_SHUTDOWN_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "clubhouse"),
			Password:     getEnvString("DB_PASSWORD", "clubhouse"),
			Name:         getEnvString("DB_NAME", "clubhouse_orders"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_TTL_SECONDS", 60)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrdersTopic:   getEnvString("KAFKA_ORDERS_TOPIC", "clubhouse.orders"),
			PaymentsTopic: getEnvString("KAFKA_PAYMENTS_TOPIC", "clubhouse.payments"),
			ConsumerGroup: getEnvString("KAFKA_CONSUMER_GROUP", "clubhouse-orders-service"),
		},
		POS: POSConfig{
			BaseURL:     getEnvString("POS_BASE_URL", "https://connect.squareupsandbox.com"),
			AccessToken: getEnvString("POS_ACCESS_TOKEN", ""),
			LocationID:  getEnvString("POS_LOCATION_ID", ""),
			Timeout:     time.Duration(getEnvInt("POS_TIMEOUT", 10)) * time.Second,
			Timezone:    getEnvString("POS_TIMEZONE", "America/New_York"),
		},
		DistanceService: ServiceConfig{
			BaseURL: getEnvString("DISTANCE_SERVICE_URL", ""),
			APIKey:  getEnvString("DISTANCE_SERVICE_API_KEY", ""),
			Timeout: time.Duration(getEnvInt("DISTANCE_SERVICE_TIMEOUT", 5)) * time.Second,
		},
		NotificationService: ServiceConfig{
			BaseURL: getEnvString("NOTIFICATION_SERVICE_URL", "http://localhost:8085"),
			APIKey:  getEnvString("NOTIFICATION_SERVICE_API_KEY", ""),
			Timeout: time.Duration(getEnvInt("NOTIFICATION_SERVICE_TIMEOUT", 10)) * time.Second,
		},
		Pricing: PricingConfig{
			TaxRate:  getEnvDecimal("TAX_RATE", decimal.RequireFromString("0.06")),
			Currency: getEnvString("CURRENCY", "USD"),
		},
		Worker: WorkerConfig{
			PollInterval:  time.Duration(getEnvInt("POS_WORKER_POLL_SECONDS", 5)) * time.Second,
			BatchSize:     getEnvInt("POS_WORKER_BATCH_SIZE", 10),
			MaxAttempts:   getEnvInt("POS_WORKER_MAX_ATTEMPTS", 8),
			BaseBackoff:   time.Duration(getEnvInt("POS_WORKER_BASE_BACKOFF_SECONDS", 10)) * time.Second,
			MaxBackoff:    time.Duration(getEnvInt("POS_WORKER_MAX_BACKOFF_SECONDS", 1800)) * time.Second,
			Lease:         time.Duration(getEnvInt("POS_WORKER_LEASE_SECONDS", 60)) * time.Second,
			RatePerSecond: getEnvFloat("POS_WORKER_RATE_PER_SECOND", 5),
			NotifyTimeout: time.Duration(getEnvInt("NOTIFY_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret: getEnvString("JWT_SECRET", ""),
			AdminRole: getEnvString("ADMIN_ROLE", "ADMIN"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 10),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 20),
		},
		Features: FeatureFlags{
			EnableOrderEvents:  getEnvBool("ENABLE_ORDER_EVENTS", true),
			EnableOrderCaching: getEnvBool("ENABLE_ORDER_CACHING", true),
			EnablePOSSync:      getEnvBool("ENABLE_POS_SYNC", true),
		},
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
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
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
