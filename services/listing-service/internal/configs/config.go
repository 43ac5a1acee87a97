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
	URL string
}

type SupabaseConfig struct {
	URL           string
	ServiceKey    string
	StorageBucket string
	Timeout       time.Duration
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

// ListingsConfig - параметры жизненного цикла объявлений.
type ListingsConfig struct {
	TTL             time.Duration // сколько объявление живет опубликованным
	ArchiveCronSpec string
	ArchiveOnStart  bool
	ImportTimeout   time.Duration

	// импорт со страниц в локальной сети, только для разработки
	ImportAllowPrivate bool
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName      string
	Database     DBconfig
	Rest         RESTconfig
	RabbitMQ     RabbitMQConfig
	Supabase     SupabaseConfig
	Listings     ListingsConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
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

	cfg.AppName = getEnvAsString("APP_NAME", "listing-service")

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.Database.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", true)
	cfg.Database.MaxConns = getEnvAsInt("DB_MAX_CONNS", 10)

	cfg.Rest.PORT = getEnvAsString("PORT", "8081")

	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL environment variable is required")
	}

	cfg.Supabase.URL = strings.TrimRight(os.Getenv("SUPABASE_URL"), "/")
	if cfg.Supabase.URL == "" {
		return nil, fmt.Errorf("SUPABASE_URL environment variable is required")
	}
	cfg.Supabase.ServiceKey = os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if cfg.Supabase.ServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY environment variable is required")
	}
	cfg.Supabase.StorageBucket = getEnvAsString("SUPABASE_STORAGE_BUCKET", "listing-images")
	cfg.Supabase.Timeout = getEnvAsDuration("SUPABASE_TIMEOUT", 15*time.Second)

	cfg.Listings.TTL = getEnvAsDuration("LISTING_TTL", 60*24*time.Hour)
	cfg.Listings.ArchiveCronSpec = getEnvAsString("LISTING_ARCHIVE_CRON", "@every 1h")
	cfg.Listings.ArchiveOnStart = getEnvAsBool("LISTING_ARCHIVE_ON_START", false)
	cfg.Listings.ImportTimeout = getEnvAsDuration("LISTING_IMPORT_TIMEOUT", 15*time.Second)
	cfg.Listings.ImportAllowPrivate = getEnvAsBool("LISTING_IMPORT_ALLOW_PRIVATE_NETWORKS", false)

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

// getEnvAsBool читает переменную окружения как bool или возвращает значение по умолчанию
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

// getEnvAsDuration понимает формат time.ParseDuration ("90s", "1440h").
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
