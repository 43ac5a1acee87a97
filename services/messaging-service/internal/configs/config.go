package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DBconfig struct {
	URL         string
	AutoMigrate bool
	MaxConns    int
}

type RESTconfig struct {
	PORT string
}

type RabbitMQConfig struct {
	URL        string
	Prefetch   int
	MaxRetries int
	RetryTTL   time.Duration
}

// RedisConfig - кэш счетчиков непрочитанного. Выключенный Redis не ломает сервис.
type RedisConfig struct {
	Enabled   bool
	Addr      string
	Password  string
	DB        int
	UnreadTTL time.Duration
}

type ListingServiceConfig struct {
	URL     string
	Timeout time.Duration
}

type SupabaseRealtimeConfig struct {
	Enabled           bool
	URL               string
	ServiceKey        string
	HeartbeatInterval time.Duration
}

// MessagingConfig - лимиты отправки и обслуживание уведомлений.
type MessagingConfig struct {
	SendRate              float64 // сообщений в секунду на пользователя
	SendBurst             int
	NotificationRetention time.Duration
	PurgeCronSpec         string
	LimiterCleanupCron    string
	LimiterIdleTTL        time.Duration
}

type StdoutLogConfig struct {
	Level string
	JSON  bool
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName        string
	Database       DBconfig
	Rest           RESTconfig
	RabbitMQ       RabbitMQConfig
	Redis          RedisConfig
	ListingService ListingServiceConfig
	Realtime       SupabaseRealtimeConfig
	Messaging      MessagingConfig
	FluentBit      FluentBitConfig
	StdoutLogger   StdoutLogConfig
}

// LoadConfig загружает конфигурацию из переменных окружения.
// Файл .env необязателен: в контейнере переменные приходят из окружения.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Printf("Info: Could not load .env file (path: %v): %v. Using process environment.\n", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "messaging-service")

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.Database.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", true)
	cfg.Database.MaxConns = getEnvAsInt("DB_MAX_CONNS", 10)

	cfg.Rest.PORT = getEnvAsString("PORT", "8082")

	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL environment variable is required")
	}
	cfg.RabbitMQ.Prefetch = getEnvAsInt("RABBITMQ_PREFETCH", 10)
	cfg.RabbitMQ.MaxRetries = getEnvAsInt("RABBITMQ_MAX_RETRIES", 5)
	cfg.RabbitMQ.RetryTTL = getEnvAsDuration("RABBITMQ_RETRY_TTL", 10*time.Second)

	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", true)
	if cfg.Redis.Enabled {
		cfg.Redis.Addr = getEnvAsString("REDIS_ADDR", "localhost:6379")
		cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
		cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)
	}
	cfg.Redis.UnreadTTL = getEnvAsDuration("UNREAD_CACHE_TTL", 5*time.Minute)

	cfg.ListingService.URL = strings.TrimRight(os.Getenv("LISTING_SERVICE_URL"), "/")
	if cfg.ListingService.URL == "" {
		return nil, fmt.Errorf("LISTING_SERVICE_URL environment variable is required")
	}
	cfg.ListingService.Timeout = getEnvAsDuration("LISTING_SERVICE_TIMEOUT", 5*time.Second)

	cfg.Realtime.Enabled = getEnvAsBool("SUPABASE_REALTIME_ENABLED", false)
	if cfg.Realtime.Enabled {
		cfg.Realtime.URL = strings.TrimRight(os.Getenv("SUPABASE_URL"), "/")
		cfg.Realtime.ServiceKey = os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
		if cfg.Realtime.URL == "" || cfg.Realtime.ServiceKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required when SUPABASE_REALTIME_ENABLED is true")
		}
		cfg.Realtime.HeartbeatInterval = getEnvAsDuration("SUPABASE_REALTIME_HEARTBEAT", 30*time.Second)
	}

	cfg.Messaging.SendRate = getEnvAsFloat("MESSAGE_SEND_RATE", 1)
	cfg.Messaging.SendBurst = getEnvAsInt("MESSAGE_SEND_BURST", 10)
	cfg.Messaging.NotificationRetention = getEnvAsDuration("NOTIFICATION_RETENTION", 30*24*time.Hour)
	cfg.Messaging.PurgeCronSpec = getEnvAsString("NOTIFICATION_PURGE_CRON", "@daily")
	cfg.Messaging.LimiterCleanupCron = getEnvAsString("LIMITER_CLEANUP_CRON", "@every 10m")
	cfg.Messaging.LimiterIdleTTL = getEnvAsDuration("LIMITER_IDLE_TTL", 30*time.Minute)

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}

		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")
	cfg.StdoutLogger.JSON = getEnvAsBool("STDOUT_LOG_JSON", false)

	return cfg, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	v, err := strconv.ParseFloat(valueStr, 64)
	if err != nil || v <= 0 {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as positive float: %v. Using default value: %g\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(valStr)
	if err != nil || d <= 0 {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as duration: %v. Using default value: %s\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return d
}
