package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	App        AppConfig
	Bot        BotConfig
	Withdrawal WithdrawalConfig
	BscScan    BscScanConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret       string
	DemoFingerprint string
}

// BotConfig holds the messaging-bot entry point settings
type BotConfig struct {
	Token string
}

// WithdrawalConfig holds withdrawal policy settings
type WithdrawalConfig struct {
	MinAmount     int64
	NetworkFeeBNB decimal.Decimal
}

// BscScanConfig holds the optional fee-proof lookup settings
type BscScanConfig struct {
	APIKey  string
	BaseURL string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	minAmount, err := strconv.ParseInt(getEnv("WITHDRAWAL_MIN", "10"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid WITHDRAWAL_MIN: %w", err)
	}

	networkFee, err := decimal.NewFromString(getEnv("NETWORK_FEE_BNB", "0.0015"))
	if err != nil {
		return nil, fmt.Errorf("invalid NETWORK_FEE_BNB: %w", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "airdrop"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			DemoFingerprint: getEnv("DEMO_FINGERPRINT", "demo-device"),
		},
		Bot: BotConfig{
			Token: getEnv("BOT_TOKEN", ""),
		},
		Withdrawal: WithdrawalConfig{
			MinAmount:     minAmount,
			NetworkFeeBNB: networkFee,
		},
		BscScan: BscScanConfig{
			APIKey:  getEnv("BSCSCAN_API_KEY", ""),
			BaseURL: getEnv("BSCSCAN_BASE_URL", "https://api.bscscan.com/api"),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
