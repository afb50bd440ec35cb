package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For duration parsing

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number

	GatewayURL     string        // Transfer gateway base URL; empty selects the mock
	GatewayAPIKey  string        // Transfer gateway API key
	GatewayTimeout time.Duration // Per-call gateway timeout

	IsProd bool // Is production environment
}

// DSN builds the MySQL data source name from the DB fields.
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	gatewayTimeout, _ := time.ParseDuration(os.Getenv("GATEWAY_TIMEOUT"))
	return &Config{
		AppPort:        os.Getenv("APP_PORT"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBHost:         os.Getenv("DB_HOST"),
		DBPort:         os.Getenv("DB_PORT"),
		DBName:         os.Getenv("DB_NAME"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPass:      os.Getenv("REDIS_PASS"),
		RedisDB:        redisDB,
		GatewayURL:     os.Getenv("GATEWAY_URL"),
		GatewayAPIKey:  os.Getenv("GATEWAY_API_KEY"),
		GatewayTimeout: gatewayTimeout,
		IsProd:         os.Getenv("IS_PROD") == "true",
	}
}
