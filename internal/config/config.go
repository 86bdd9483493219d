package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type ExternalCardValidationConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type FeatureFlags struct {
	AutoLoginAfterRegister bool
	PasswordlessRegister   bool
}

type Config struct {
	Env         string
	Port        string
	PostgresURL string

	// Exactly 32 bytes. Startup aborts otherwise.
	EncryptionKey string

	JWT JWTConfig

	RateLimitWindow time.Duration
	RateLimitMax    int

	FrontendURLs []string

	PixExpirationMinutes int

	ExternalCardValidation ExternalCardValidationConfig

	InstallmentInterestMonthly float64
	GatewayApprovalRate        float64

	Features FeatureFlags
}

// LoadConfig reads .env (if present) and the process environment. The
// encryption key length is a hard precondition: a wrong key silently
// produces undecryptable card payloads, so we abort instead.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env variables")
	}

	cfg := &Config{
		Env:           getEnv("ENV", "development"),
		Port:          getEnv("PORT", "3000"),
		PostgresURL:   getEnv("POSTGRES_URL", ""),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_SECRET", ""),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
			AccessTTL:     getEnvDuration("JWT_EXPIRES_IN", time.Hour),
			RefreshTTL:    getEnvDuration("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),
		},
		RateLimitWindow:      time.Duration(getEnvInt("RATE_LIMIT_WINDOW_MS", 15*60*1000)) * time.Millisecond,
		RateLimitMax:         getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100),
		FrontendURLs:         splitAndTrim(getEnv("FRONTEND_URLS", "")),
		PixExpirationMinutes: getEnvInt("PIX_EXPIRATION_MINUTES", 30),
		ExternalCardValidation: ExternalCardValidationConfig{
			URL:     getEnv("EXTERNAL_CARD_VALIDATION_URL", ""),
			APIKey:  getEnv("EXTERNAL_CARD_VALIDATION_API_KEY", ""),
			Timeout: time.Duration(getEnvInt("EXTERNAL_CARD_VALIDATION_TIMEOUT_MS", 4000)) * time.Millisecond,
		},
		InstallmentInterestMonthly: getEnvFloat("INSTALLMENT_INTEREST_MONTHLY", 0.03),
		GatewayApprovalRate:        getEnvFloat("GATEWAY_APPROVAL_RATE", 0.85),
		Features: FeatureFlags{
			AutoLoginAfterRegister: getEnv("AUTO_LOGIN_AFTER_REGISTER", "") == "true",
			PasswordlessRegister:   getEnv("PASSWORDLESS_REGISTER", "") == "true",
		},
	}

	if len(cfg.EncryptionKey) != 32 {
		log.Fatalf("ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(cfg.EncryptionKey))
	}
	if cfg.ExternalCardValidation.URL == "" {
		log.Println("EXTERNAL_CARD_VALIDATION_URL not set, external card validation will be skipped")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
