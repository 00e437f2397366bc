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

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	OTP      OTPConfig
	SMTP     SMTPConfig
	Referral ReferralConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// OTPPurposeConfig holds the per-purpose OTP policy
type OTPPurposeConfig struct {
	CodeLength        int
	TTL               time.Duration
	MaxAttempts       int
	MinResendInterval time.Duration
	MaxResendsPerHour int
}

// OTPConfig holds the OTP policies for each purpose
type OTPConfig struct {
	EmailVerification OTPPurposeConfig
	PasswordReset     OTPPurposeConfig
}

// SMTPConfig holds outbound email configuration
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// ReferralConfig holds referral defaults
type ReferralConfig struct {
	DefaultAgentEmail string
	FrontendURL       string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Database: loadDatabaseConfig(appMode),
		JWT:      loadJWTConfig(appMode),
		Cookie:   loadCookieConfig(appMode),
		OTP:      loadOTPConfig(),
		SMTP:     loadSMTPConfig(),
		Referral: loadReferralConfig(),
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "renteasy"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "15"))
	refreshDays, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_DAYS", "7"))

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
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

// loadOTPConfig loads per-purpose OTP policies
func loadOTPConfig() OTPConfig {
	return OTPConfig{
		EmailVerification: OTPPurposeConfig{
			CodeLength:        getEnvInt("OTP_VERIFY_LENGTH", 4),
			TTL:               time.Duration(getEnvInt("OTP_VERIFY_TTL_MINUTES", 10)) * time.Minute,
			MaxAttempts:       getEnvInt("OTP_VERIFY_MAX_ATTEMPTS", 5),
			MinResendInterval: time.Duration(getEnvInt("OTP_VERIFY_RESEND_SECONDS", 60)) * time.Second,
			MaxResendsPerHour: getEnvInt("OTP_VERIFY_MAX_PER_HOUR", 5),
		},
		PasswordReset: OTPPurposeConfig{
			CodeLength:        getEnvInt("OTP_RESET_LENGTH", 6),
			TTL:               time.Duration(getEnvInt("OTP_RESET_TTL_MINUTES", 15)) * time.Minute,
			MaxAttempts:       getEnvInt("OTP_RESET_MAX_ATTEMPTS", 5),
			MinResendInterval: time.Duration(getEnvInt("OTP_RESET_RESEND_SECONDS", 60)) * time.Second,
			MaxResendsPerHour: getEnvInt("OTP_RESET_MAX_PER_HOUR", 5),
		},
	}
}

// loadSMTPConfig loads outbound email config
func loadSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     getEnv("SMTP_PORT", "465"),
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", "no-reply@renteasy.app"),
	}
}

// loadReferralConfig loads referral defaults
func loadReferralConfig() ReferralConfig {
	return ReferralConfig{
		DefaultAgentEmail: getEnv("DEFAULT_AGENT_EMAIL", ""),
		FrontendURL:       getEnv("FRONTEND_URL", "https://app.renteasy.app"),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
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
		// Default production origins
		return "https://app.renteasy.app"
	}
	return origins
}
