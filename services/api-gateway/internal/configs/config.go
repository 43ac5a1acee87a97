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

// AuthConfig - проверка access-токенов Supabase.
type AuthConfig struct {
	SupabaseURL string
	JWKSURL     string
	JWTSecret   string // пусто - HS256-токены не принимаются
	Issuer      string
	Audience    string
	Leeway      time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         int
}

// RateLimitConfig - token bucket на клиента.
type RateLimitConfig struct {
	RPS         float64
	Burst       int
	CleanupCron string
	IdleTTL     time.Duration
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

// Config хранит всю конфигурацию приложения.
type Config struct {
	AppName string
	Port    string // Порт, на котором будет работать сам Gateway

	// URL-адреса внутренних сервисов
	ListingServiceURL   string
	MessagingServiceURL string

	Auth         AuthConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
}

// LoadConfig загружает конфигурацию из переменных окружения.
// Файл .env необязателен: в контейнере переменные приходят из окружения.
func LoadConfig(envPath ...string) (*Config, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Printf("Info: Could not load .env file (path: %v): %v. Using process environment.\n", envPath, err)
	}

	cfg := &Config{
		AppName: getEnvAsString("APP_NAME", "api-gateway"),
		Port:    getEnvAsString("GATEWAY_PORT", "8080"),

		ListingServiceURL:   strings.TrimRight(getEnvAsString("LISTING_SERVICE_URL", "http://localhost:8081"), "/"),
		MessagingServiceURL: strings.TrimRight(getEnvAsString("MESSAGING_SERVICE_URL", "http://localhost:8082"), "/"),
	}

	cfg.Auth.SupabaseURL = strings.TrimRight(os.Getenv("SUPABASE_URL"), "/")
	cfg.Auth.JWTSecret = os.Getenv("SUPABASE_JWT_SECRET")
	cfg.Auth.Audience = getEnvAsString("JWT_AUDIENCE", "authenticated")
	cfg.Auth.Leeway = getEnvAsDuration("JWT_LEEWAY", 30*time.Second)
	if cfg.Auth.SupabaseURL != "" {
		cfg.Auth.Issuer = cfg.Auth.SupabaseURL + "/auth/v1"
		cfg.Auth.JWKSURL = cfg.Auth.SupabaseURL + "/auth/v1/.well-known/jwks.json"
	}
	cfg.Auth.Issuer = getEnvAsString("JWT_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.JWKSURL = getEnvAsString("SUPABASE_JWKS_URL", cfg.Auth.JWKSURL)
	if cfg.Auth.JWKSURL == "" && cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("SUPABASE_URL, SUPABASE_JWKS_URL or SUPABASE_JWT_SECRET environment variable is required")
	}

	cfg.CORS.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"})
	cfg.CORS.MaxAge = getEnvAsInt("CORS_MAX_AGE", 300)

	cfg.RateLimit.RPS = getEnvAsFloat("RATE_LIMIT_RPS", 20)
	cfg.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 40)
	cfg.RateLimit.CleanupCron = getEnvAsString("RATE_LIMIT_CLEANUP_CRON", "@every 5m")
	cfg.RateLimit.IdleTTL = getEnvAsDuration("RATE_LIMIT_IDLE_TTL", 15*time.Minute)

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

// getEnvAsList читает список через запятую, пустые элементы отбрасываются.
func getEnvAsList(key string, defaultValue []string) []string {
	valStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valStr) == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(valStr)
	if err != nil || d < 0 {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as duration: %v. Using default value: %s\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return d
}
