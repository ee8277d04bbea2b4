package config

import (
	"errors"  // For config validation errors
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For splitting the admin list

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string  // Application port
	DBUser     string  // Database user
	DBPassword string  // Database password
	DBHost     string  // Database host
	DBPort     string  // Database port
	DBName     string  // Database name
	BotToken   string  // Telegram bot token, used to verify initData signatures
	JWTSecret  string  // JWT secret key for session tokens
	RedisAddr  string  // Redis server address
	RedisPass  string  // Redis password
	RedisDB    int     // Redis database number
	AdminTgIDs []int64 // Telegram IDs allowed on admin routes
	CORSOrigin string  // Allowed origin of the Mini App frontend
	IsProd     bool    // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:    os.Getenv("APP_PORT"),                    // Application port
		DBUser:     os.Getenv("DB_USER"),                     // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),                 // Database password
		DBHost:     os.Getenv("DB_HOST"),                     // Database host
		DBPort:     os.Getenv("DB_PORT"),                     // Database port
		DBName:     os.Getenv("DB_NAME"),                     // Database name
		BotToken:   os.Getenv("BOT_TOKEN"),                   // Telegram bot token
		JWTSecret:  os.Getenv("JWT_SECRET"),                  // JWT secret key
		RedisAddr:  os.Getenv("REDIS_ADDR"),                  // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),                  // Redis password
		RedisDB:    redisDB,                                  // Redis database number
		AdminTgIDs: parseAdminIDs(os.Getenv("ADMIN_TG_IDS")), // Admin Telegram IDs, comma-separated
		CORSOrigin: os.Getenv("CORS_ORIGIN"),                 // Mini App frontend origin
		IsProd:     os.Getenv("IS_PROD") == "true",           // Is production environment
	}
}

// Validate checks that every setting the auth and reward handlers depend on is
// present. A missing value is a startup-time misconfiguration and the server
// must fail closed rather than serve requests it cannot verify or persist.
func (c *Config) Validate() error {
	var missing []string
	if c.DBUser == "" || c.DBHost == "" || c.DBPort == "" || c.DBName == "" {
		missing = append(missing, "DB_USER/DB_HOST/DB_PORT/DB_NAME")
	}
	if c.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}
	return nil
}

// DSN builds the MySQL Data Source Name from the database settings
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// parseAdminIDs splits a comma-separated list of Telegram IDs
func parseAdminIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && id != 0 {
			ids = append(ids, id) // Keep only well-formed entries
		}
	}
	return ids
}
