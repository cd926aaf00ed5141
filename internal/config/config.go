package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         int
	Database     DatabaseConfig
	JWTSecret    string
	Environment  string
	CORSOrigins  []string
	ProbeTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type         string // postgres
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Load loads configuration from the environment, reading a .env file first
// when one is present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Debug(".env file loaded")
	}

	env := getEnv("ENVIRONMENT", "production")

	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Database: DatabaseConfig{
			Type:         getEnv("DATABASE_TYPE", "postgres"),
			DSN:          getEnv("DATABASE_DSN", buildPostgresDSN()),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		},
		JWTSecret:    loadJWTSecret(env),
		Environment:  env,
		CORSOrigins:  loadCORSOrigins(env),
		ProbeTimeout: time.Duration(getEnvInt("PROBE_TIMEOUT_SECONDS", 10)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("configuration validation failed", "error", err)
	}

	return cfg
}

func buildPostgresDSN() string {
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	user := getEnv("POSTGRES_USER", "pingkeep")
	password := getEnv("POSTGRES_PASSWORD", "secret")
	dbName := getEnv("POSTGRES_DB", "pingkeep")
	sslMode := getEnv("POSTGRES_SSLMODE", "disable")

	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(user, password),
		Host:   fmt.Sprintf("%s:%s", host, port),
		Path:   dbName,
	}

	query := u.Query()
	query.Set("sslmode", sslMode)
	u.RawQuery = query.Encode()

	return u.String()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Environment == "production" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}

	if len(c.CORSOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin must be configured")
	}

	if c.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive")
	}

	return nil
}

func loadJWTSecret(env string) string {
	secret := os.Getenv("JWT_SECRET")

	if secret == "" {
		if env == "production" {
			log.Fatal("JWT_SECRET environment variable is required in production")
		}

		log.Warn("JWT_SECRET not set, generating random secret for development")
		log.Warn("this secret changes on restart; set JWT_SECRET in production")
		return generateRandomSecret()
	}

	if len(secret) < 16 {
		log.Fatal("JWT_SECRET must be at least 16 characters long")
	}

	return secret
}

func loadCORSOrigins(env string) []string {
	if appURL := os.Getenv("APP_URL"); appURL != "" {
		return []string{appURL}
	}

	if env != "development" {
		log.Warn("APP_URL not set, using default localhost origins")
	}
	return []string{"http://localhost:3000", "http://localhost:8080"}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func generateRandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Fatal("failed to generate random secret", "error", err)
	}
	return base64.URLEncoding.EncodeToString(bytes)
}
