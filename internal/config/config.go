package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	DynamoDB   DynamoDBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Mask       MaskConfig
	SMTP       SMTPConfig
	Pagination PaginationConfig
	Debug      bool
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type JWTConfig struct {
	SecretKey     string
	AccessExpiry  time.Duration
	SessionExpiry time.Duration
}

// MaskConfig controls how email and phone values are obscured in API
// output. Counts are characters shown at each end of the masked part.
type MaskConfig struct {
	Enabled    bool
	MaskChar   string
	EmailStart int
	EmailEnd   int
	PhoneStart int
	PhoneEnd   int
}

// SMTPConfig configures welcome-mail delivery. An empty Host disables
// delivery entirely; registration never depends on it.
type SMTPConfig struct {
	Host string
	Port string
	From string
}

type PaginationConfig struct {
	PerPage int
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Region:    getEnv("DYNAMODB_REGION", "us-east-1"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "GatehouseTable"),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			SecretKey:     getEnv("JWT_SECRET_KEY", ""),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			SessionExpiry: getEnvAsDuration("JWT_SESSION_EXPIRY", 7*24*time.Hour),
		},
		Mask: MaskConfig{
			Enabled:    getEnvAsBool("MASKING_ENABLED", true),
			MaskChar:   getEnv("MASKING_CHAR", "*"),
			EmailStart: getEnvAsInt("MASKING_EMAIL_SHOW_START", 1),
			EmailEnd:   getEnvAsInt("MASKING_EMAIL_SHOW_END", 1),
			PhoneStart: getEnvAsInt("MASKING_PHONE_SHOW_START", 3),
			PhoneEnd:   getEnvAsInt("MASKING_PHONE_SHOW_END", 2),
		},
		SMTP: SMTPConfig{
			Host: getEnv("SMTP_HOST", ""),
			Port: getEnv("SMTP_PORT", "25"),
			From: getEnv("SMTP_FROM", "no-reply@gatehouse.local"),
		},
		Pagination: PaginationConfig{
			PerPage: getEnvAsInt("PAGINATION_PER_PAGE", 15),
		},
		Debug: getEnvAsBool("DEBUG", false),
	}

	if cfg.JWT.SecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is required")
	}

	if len(cfg.JWT.SecretKey) < 32 {
		return nil, fmt.Errorf("JWT_SECRET_KEY must be at least 32 bytes (256 bits)")
	}

	if cfg.Pagination.PerPage < 1 {
		return nil, fmt.Errorf("PAGINATION_PER_PAGE must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
