package configs

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Journal  JournalConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Binance  BinanceConfig
	Trading  TradingConfig
	Auth     AuthConfig
	Telegram TelegramConfig
	Accounts *AccountsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port     string
	Env      string
	Timezone string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string
}

// JournalConfig selects the journal backend
type JournalConfig struct {
	Backend string // "file" or "postgres"
	Dir     string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL     string
	Channel string
	Key     string
}

// BinanceConfig holds execution venue configuration
type BinanceConfig struct {
	APIKey     string
	SecretKey  string
	Testnet    bool
	RateLimit  float64
	RateBurst  int
	MaxRetries int
}

// TradingConfig holds ledger and monitor settings
type TradingConfig struct {
	FeeRate         float64
	FoldMode        string // "dedup" or "legacy"
	MonitorSchedule string
	DefaultQuantity float64
	DefaultLeverage float64
}

// AuthConfig holds operator authentication settings
type AuthConfig struct {
	JWTSecret            string
	OperatorPasswordHash string
	TokenTTL             time.Duration
}

// TelegramConfig holds Telegram notification settings
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// Load loads configuration from environment variables and the accounts file
func Load() (*Config, error) {
	accounts, err := LoadAccounts(getEnv("ACCOUNTS_FILE", ""))
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "3000"),
			Env:      getEnv("GO_ENV", "development"),
			Timezone: getEnv("TZ", "UTC"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Journal: JournalConfig{
			Backend: strings.ToLower(getEnv("JOURNAL_BACKEND", "file")),
			Dir:     getEnv("JOURNAL_DIR", "TV"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", ""),
			Channel: getEnv("SNAPSHOT_CHANNEL", "tradeledger:snapshots"),
			Key:     getEnv("SNAPSHOT_KEY", "tradeledger:snapshot:latest"),
		},
		Binance: BinanceConfig{
			APIKey:     getEnv("BINANCE_API_KEY", ""),
			SecretKey:  getEnv("BINANCE_SECRET_KEY", ""),
			Testnet:    getEnvBool("BINANCE_TESTNET", false),
			RateLimit:  getEnvFloat("VENUE_RATE_LIMIT", 10),
			RateBurst:  getEnvInt("VENUE_RATE_BURST", 20),
			MaxRetries: getEnvInt("VENUE_MAX_RETRIES", 3),
		},
		Trading: TradingConfig{
			FeeRate:         getEnvFloat("FEE_RATE", 0.0004),
			FoldMode:        strings.ToLower(getEnv("STATS_FOLD_MODE", "dedup")),
			MonitorSchedule: getEnv("MONITOR_SCHEDULE", "*/1 * * * *"),
			DefaultQuantity: getEnvFloat("DEFAULT_QUANTITY", 0.01),
			DefaultLeverage: getEnvFloat("DEFAULT_LEVERAGE", 125),
		},
		Auth: AuthConfig{
			JWTSecret:            getEnv("JWT_SECRET", ""),
			OperatorPasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),
			TokenTTL:             getEnvDuration("TOKEN_TTL", 24*time.Hour),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		},
		Accounts: accounts,
	}, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
