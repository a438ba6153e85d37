package main

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// config captures runtime settings. Every value has a local-dev default so
// the API starts with an empty environment.
type config struct {
	HTTPAddress     string
	AppEnv          string
	StoreDriver     string // memory, file or postgres
	DataDir         string // used by the file store
	DBURL           string // used by the postgres store
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAITimeout   time.Duration
	StripeSecretKey string
	SiteURL         string
	SoldOutSKUs     []string
	ShutdownTimeout time.Duration
}

// loadEnvFile reads the given env files (.env when none are named) into the
// process environment. Variables already set are not overridden.
func loadEnvFile(filenames ...string) error {
	return godotenv.Load(filenames...)
}

func loadConfig() config {
	return config{
		HTTPAddress:     getEnv("HTTP_ADDRESS", ":3000"),
		AppEnv:          getEnv("APP_ENV", "production"),
		StoreDriver:     getEnv("STORE_DRIVER", "file"),
		DataDir:         getEnv("DATA_DIR", "data"),
		DBURL:           getEnv("DB_URL", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   strings.TrimRight(getEnv("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
		OpenAITimeout:   getDurationEnv("OPENAI_TIMEOUT", 15*time.Second),
		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		SiteURL:         strings.TrimRight(getEnv("SITE_URL", "http://localhost:3000"), "/"),
		SoldOutSKUs:     splitAndTrim(getEnv("SOLD_OUT_SKUS", "")),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
