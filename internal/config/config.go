package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers for the client store
const (
	StorageMemory   = "memory"
	StorageMySQL    = "mysql"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config holds all configuration for the application
type Config struct {
	AppMode    string
	Port       string
	Storage    StorageConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	PayrollAPI PayrollAPIConfig
	Session    SessionConfig
	Cookie     CookieConfig
	Cipher     CipherConfig
	Ledger     LedgerConfig
}

// StorageConfig selects the backing store for client-side state
type StorageConfig struct {
	Driver string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// RedisConfig holds redis configuration
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// PayrollAPIConfig holds the remote payroll API settings
type PayrollAPIConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// SessionConfig holds session token and lifecycle settings
type SessionConfig struct {
	Secret             string
	TTL                time.Duration
	IdleTimeout        time.Duration
	ExpiredLogoutDelay time.Duration
	RememberMeDays     int
	DeviceCookieDays   int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// CipherConfig holds the shared secret used for client storage values.
// The secret is static; anyone with the binary or environment can decrypt stored values.
type CipherConfig struct {
	Secret string
}

// LedgerConfig holds loan ledger behaviour settings
type LedgerConfig struct {
	DeleteConfirmWindow time.Duration
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	driver := strings.ToLower(strings.TrimSpace(getEnv("STORAGE_DRIVER", StorageMemory)))
	switch driver {
	case StorageMemory, StorageMySQL, StoragePostgres, StorageRedis:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER: '%s'", driver)
	}

	config := &Config{
		AppMode:    appMode,
		Port:       getEnv("PORT", "3000"),
		Storage:    StorageConfig{Driver: driver},
		Database:   loadDatabaseConfig(appMode, driver),
		Redis:      loadRedisConfig(),
		PayrollAPI: loadPayrollAPIConfig(),
		Session:    loadSessionConfig(appMode),
		Cookie:     loadCookieConfig(appMode),
		Cipher:     CipherConfig{Secret: getEnv("CLIENT_CIPHER_SECRET", "")},
		Ledger: LedgerConfig{
			DeleteConfirmWindow: time.Duration(getEnvInt("DELETE_CONFIRM_SECONDS", 120)) * time.Second,
		},
	}

	if config.PayrollAPI.BaseURL == "" {
		return nil, fmt.Errorf("PAYROLL_API_BASE_URL is required")
	}
	if config.IsProd() && config.Session.Secret == "default_session_secret" {
		return nil, fmt.Errorf("PROD_SESSION_SECRET must be set in prod mode")
	}

	log.Printf("✅ Configuration loaded successfully [MODE: %s, STORAGE: %s]", appMode, driver)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode, driver string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	defaultPort := "3306"
	if driver == StoragePostgres {
		defaultPort = "5432"
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", defaultPort),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "paydesk"),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Username: getEnv("REDIS_USER", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

// loadPayrollAPIConfig loads the remote API timeout and retry policy
func loadPayrollAPIConfig() PayrollAPIConfig {
	return PayrollAPIConfig{
		BaseURL:      strings.TrimRight(getEnv("PAYROLL_API_BASE_URL", ""), "/"),
		Timeout:      time.Duration(getEnvInt("PAYROLL_API_TIMEOUT_SECONDS", 15)) * time.Second,
		MaxRetries:   getEnvInt("PAYROLL_API_MAX_RETRIES", 2),
		RetryBackoff: time.Duration(getEnvInt("PAYROLL_API_RETRY_BACKOFF_MS", 300)) * time.Millisecond,
	}
}

// loadSessionConfig loads session config based on mode
func loadSessionConfig(mode string) SessionConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return SessionConfig{
		Secret:             getEnv(prefix+"SESSION_SECRET", "default_session_secret"),
		TTL:                time.Duration(getEnvInt("SESSION_HOURS", 12)) * time.Hour,
		IdleTimeout:        time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 60)) * time.Minute,
		ExpiredLogoutDelay: time.Duration(getEnvInt("SESSION_EXPIRED_LOGOUT_DELAY_MS", 1500)) * time.Millisecond,
		RememberMeDays:     getEnvInt("REMEMBER_ME_DAYS", 7),
		DeviceCookieDays:   getEnvInt("DEVICE_COOKIE_DAYS", 365),
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://dashboard.paydesk.app"
	}
	return origins
}
