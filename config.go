package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all environment variables for the service.
type Config struct {
	Env          string
	Port         string
	MongoURL     string
	MongoDB      string
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string
	JWTSecret    string
}

// LoadConfig loads environment variables into a Config and validates them.
// A .env file is honored when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:        getEnv("APP_ENV", "development"),
		Port:       getEnv("PORT", "8080"),
		MongoURL:   getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:    getEnv("MONGO_DB", "marketplace"),
		RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379"),
		KafkaTopic: getEnv("KAFKA_ORDER_TOPIC", "order-events"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
