package infrastructures

import (
	"os"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	DATABASE_URL      string
	REDIS_ADDRESS     string
	REDIS_PASSWORD    string
	IDENTITY_BASE_URL string
	TREASURY_BASE_URL string
	TREASURY_API_KEY  string
	TREASURY_NETWORK  string
	NOTIFIER_BASE_URL string
	NOTIFIER_API_KEY  string
}

var Config *AppConfig

func LoadConfig() *AppConfig {
	godotenv.Load()

	Config = &AppConfig{
		DATABASE_URL:      os.Getenv("DATABASE_URL"),
		REDIS_ADDRESS:     os.Getenv("REDIS_ADDRESS"),
		REDIS_PASSWORD:    os.Getenv("REDIS_PASSWORD"),
		IDENTITY_BASE_URL: os.Getenv("IDENTITY_BASE_URL"),
		TREASURY_BASE_URL: os.Getenv("TREASURY_BASE_URL"),
		TREASURY_API_KEY:  os.Getenv("TREASURY_API_KEY"),
		TREASURY_NETWORK:  getEnv("TREASURY_NETWORK", "base-mainnet"),
		NOTIFIER_BASE_URL: os.Getenv("NOTIFIER_BASE_URL"),
		NOTIFIER_API_KEY:  os.Getenv("NOTIFIER_API_KEY"),
	}

	return Config
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
