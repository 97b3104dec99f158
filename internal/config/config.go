package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"paywatch.backend/internal/domain/entities"
)

// Config holds all configuration values
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	PriceFeed   PriceFeedConfig
	Explorer    ExplorerConfig
	Fingerprint FingerprintConfig
	Watcher     WatcherConfig
	StatusCache StatusCacheConfig

	// WalletSeedFile optionally points at a JSON file of merchant wallets
	// upserted at startup. Empty means no seeding.
	WalletSeedFile string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration. URL may be empty, in which case the
// engine runs on the in-process TTL cache instead.
type RedisConfig struct {
	URL      string
	Password string
}

// PriceFeedConfig holds price feed configuration
type PriceFeedConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
	// Fallback prices served when the live feed is unavailable.
	Fallbacks map[entities.Asset]decimal.Decimal
}

// ExplorerConfig holds ledger explorer configuration
type ExplorerConfig struct {
	BaseURL string
	Timeout time.Duration
}

// FingerprintConfig holds fingerprint allocation configuration
type FingerprintConfig struct {
	// Offset band, in asset units. The drawn fractional offset lies in
	// [OffsetMin, OffsetMax).
	OffsetMin   float64
	OffsetMax   float64
	MaxAttempts int
}

// WatcherConfig holds blockchain watcher configuration
type WatcherConfig struct {
	PollInterval time.Duration
	MaxPolls     int
	TxPageSize   int
}

// StatusCacheConfig holds read-through status cache configuration
type StatusCacheConfig struct {
	PendingTTL  time.Duration
	TerminalTTL time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "paywatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		PriceFeed: PriceFeedConfig{
			BaseURL:   getEnv("PRICE_FEED_URL", "https://api.coingecko.com/api/v3"),
			Timeout:   getEnvAsDuration("PRICE_FEED_TIMEOUT", 5*time.Second),
			CacheTTL:  getEnvAsDuration("PRICE_CACHE_TTL", 60*time.Second),
			Fallbacks: defaultFallbackPrices(),
		},
		Explorer: ExplorerConfig{
			BaseURL: getEnv("EXPLORER_URL", "https://api.etherscan.io/v2"),
			Timeout: getEnvAsDuration("EXPLORER_TIMEOUT", 10*time.Second),
		},
		Fingerprint: FingerprintConfig{
			OffsetMin:   getEnvAsFloat("FINGERPRINT_OFFSET_MIN", 0.02),
			OffsetMax:   getEnvAsFloat("FINGERPRINT_OFFSET_MAX", 0.029),
			MaxAttempts: getEnvAsInt("FINGERPRINT_MAX_ATTEMPTS", 10),
		},
		Watcher: WatcherConfig{
			PollInterval: getEnvAsDuration("WATCHER_POLL_INTERVAL", 60*time.Second),
			MaxPolls:     getEnvAsInt("WATCHER_MAX_POLLS", 30),
			TxPageSize:   getEnvAsInt("WATCHER_TX_PAGE_SIZE", 100),
		},
		StatusCache: StatusCacheConfig{
			PendingTTL:  getEnvAsDuration("STATUS_CACHE_PENDING_TTL", 30*time.Second),
			TerminalTTL: getEnvAsDuration("STATUS_CACHE_TERMINAL_TTL", 24*time.Hour),
		},
		WalletSeedFile: getEnv("WALLET_SEED_FILE", ""),
	}
}

// defaultFallbackPrices returns the static per-asset prices used when the
// live feed is down. Overridable per asset through FALLBACK_PRICE_<ASSET>.
func defaultFallbackPrices() map[entities.Asset]decimal.Decimal {
	defaults := map[entities.Asset]string{
		entities.AssetBTC:   "97000",
		entities.AssetETH:   "3400",
		entities.AssetUSDT:  "1",
		entities.AssetUSDC:  "1",
		entities.AssetMATIC: "0.52",
		entities.AssetSOL:   "210",
	}

	out := make(map[entities.Asset]decimal.Decimal, len(defaults))
	for asset, def := range defaults {
		raw := getEnv("FALLBACK_PRICE_"+string(asset), def)
		price, err := decimal.NewFromString(raw)
		if err != nil {
			price, _ = decimal.NewFromString(def)
		}
		out[asset] = price
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
