package configs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Mode string
	Port int

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBNameTest string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	TaskCacheTTL  time.Duration

	SecretKey   string
	JWTLifetime time.Duration

	RateLimitMax int
	SentryDSN    string
	LogDir       string

	// Opsional: admin awal dibuat saat start jika keduanya diisi
	AdminEmail    string
	AdminPassword string
}

func LoadConfig() Config {
	// Muat file .env
	if err := godotenv.Load(); err != nil {
		// Hanya log jika tidak dalam mode test
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	return Config{
		Mode:          getEnv("MODE", "dev"),
		Port:          getEnvInt("APP_PORT", 3004),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnvInt("DB_PORT", 5432),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        getEnv("DB_NAME", "bms"),
		DBNameTest:    os.Getenv("DB_NAME_TEST"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		TaskCacheTTL:  time.Duration(getEnvInt("TASK_CACHE_TTL_SECONDS", 3600)) * time.Second,
		SecretKey:     getEnv("SECRET_KEY", "secret"),
		JWTLifetime:   time.Duration(getEnvInt("JWT_LIFETIME_SECONDS", 3600)) * time.Second,
		RateLimitMax:  getEnvInt("RATE_LIMIT_MAX", 100),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		LogDir:        getEnv("LOG_DIR", "logs"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}
