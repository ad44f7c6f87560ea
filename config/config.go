package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvironmentProduction = "production"
	EnvironmentSandbox    = "sandbox"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	HolestPay         HolestPayConfig
	Lock              LockConfig
	Merge             MergeConfig
	Kafka             KafkaConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

// HolestPayConfig holds the merchant credentials and behaviour switches for the
// HolestPay integration. It is handed to services as their settings reader.
type HolestPayConfig struct {
	MerchantSiteUID string
	SecretKey       string
	Environment     string
	Debug           bool
	ManageAllOrders bool
	NewOrderStatus  string
	StoreLocale     string
	BaseURL         string
	SyncTimeout     time.Duration
}

type LockConfig struct {
	ExpireAfter   time.Duration
	PruneAfter    time.Duration
	MaxRetries    int
	RetryInterval time.Duration
}

type MergeConfig struct {
	WebhookDepth   int
	ForwardedDepth int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type JobsConfig struct {
	LockSweepInterval    time.Duration
	ShippingSyncInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	environment := strings.ToLower(strings.TrimSpace(getEnv("HOLESTPAY_ENVIRONMENT", EnvironmentSandbox)))
	if environment != EnvironmentProduction && environment != EnvironmentSandbox {
		return nil, errors.New("HOLESTPAY_ENVIRONMENT must be production or sandbox")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "holestpay-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		HolestPay: HolestPayConfig{
			MerchantSiteUID: strings.TrimSpace(getEnv("HOLESTPAY_MERCHANT_SITE_UID", "")),
			SecretKey:       strings.TrimSpace(getEnv("HOLESTPAY_SECRET_KEY", "")),
			Environment:     environment,
			Debug:           getBoolEnv("HOLESTPAY_DEBUG", false),
			ManageAllOrders: getBoolEnv("HOLESTPAY_MANAGE_ALL_ORDERS", false),
			NewOrderStatus:  getEnv("HOLESTPAY_NEW_ORDER_STATUS", "pending_payment"),
			StoreLocale:     getEnv("HOLESTPAY_STORE_LOCALE", "en_US"),
			BaseURL:         strings.TrimRight(getEnv("HOLESTPAY_BASE_URL", ""), "/"),
			SyncTimeout:     getSecondsEnv("HOLESTPAY_SYNC_TIMEOUT_SECONDS", 30*time.Second),
		},
		Lock: LockConfig{
			ExpireAfter:   getSecondsEnv("HOLESTPAY_LOCK_EXPIRE_SECONDS", 16*time.Second),
			PruneAfter:    getSecondsEnv("HOLESTPAY_LOCK_PRUNE_SECONDS", 30*time.Second),
			MaxRetries:    getIntEnv("HOLESTPAY_LOCK_MAX_RETRIES", 16),
			RetryInterval: getSecondsEnv("HOLESTPAY_LOCK_RETRY_INTERVAL_SECONDS", time.Second),
		},
		Merge: MergeConfig{
			WebhookDepth:   positiveOr(getIntEnv("HOLESTPAY_WEBHOOK_MERGE_DEPTH", 5), 5),
			ForwardedDepth: positiveOr(getIntEnv("HOLESTPAY_FORWARDED_MERGE_DEPTH", 1), 1),
		},
		Kafka: KafkaConfig{
			Brokers: getListEnv("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_ORDER_EVENTS_TOPIC", "holestpay.order-events"),
		},
		Jobs: JobsConfig{
			LockSweepInterval:    getMinutesEnv("HOLESTPAY_LOCK_SWEEP_INTERVAL_MINUTES", time.Minute),
			ShippingSyncInterval: getMinutesEnv("HOLESTPAY_SHIPPING_SYNC_INTERVAL_MINUTES", 60*time.Minute),
		},
	}, nil
}

func (c HolestPayConfig) GetMerchantSiteUID() string {
	return c.MerchantSiteUID
}

func (c HolestPayConfig) GetSecretKey() string {
	return c.SecretKey
}

func (c HolestPayConfig) GetEnvironment() string {
	return c.Environment
}

func (c HolestPayConfig) IsDebug() bool {
	return c.Debug
}

func (c HolestPayConfig) IsManageAllOrders() bool {
	return c.ManageAllOrders
}

func (c HolestPayConfig) GetNewOrderStatus() string {
	return c.NewOrderStatus
}

func (c HolestPayConfig) GetStoreLocale() string {
	return c.StoreLocale
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func positiveOr(value, fallback int) int {
	if value < 1 {
		return fallback
	}
	return value
}
