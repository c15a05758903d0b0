package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Wallet modes.
const (
	WalletModeBatch = "batch" // EIP-5792 wallet endpoint
	WalletModeKey   = "key"   // local private key
)

// Storage modes.
const (
	StorageModeConsole  = "console"
	StorageModePostgres = "postgres"
	StorageModeNone     = "none"
)

// Config holds all application configuration. It is built once at startup and
// passed explicitly to every component.
type Config struct {
	// Application
	LogLevel        string
	LogFormat       string
	HTTPPort        string
	PreferencesFile string

	// Network
	Network     string
	ChainID     uint64
	RPCURL      string
	ExplorerURL string

	// REST API
	APIBaseURL string
	APITimeout time.Duration

	// Wallet
	WalletMode     string
	WalletRPCURL   string
	AccountAddress string
	PrivateKey     string
	FallbackGas    uint64

	// Contracts
	PredictionMarketAddress string
	TokenAddress            string
	TokenDecimals           uint8

	// Trading
	ReferralCode       string
	DefaultSlippage    decimal.Decimal
	BundlePollInterval time.Duration
	AttemptResetDelay  time.Duration

	// Cache
	CacheTTL      time.Duration
	CacheMaxItems int64

	// Balance tracking
	BalancePollInterval time.Duration

	// Circuit breaker
	BreakerEnabled         bool
	BreakerCheckInterval   time.Duration
	BreakerTradeMultiplier decimal.Decimal
	BreakerMinBalance      decimal.Decimal
	BreakerHysteresisRatio decimal.Decimal

	// Storage
	StorageMode  string // "postgres", "console" or "none"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
// The network comes from NETWORK, then the persisted preference, then testnet.
func LoadFromEnv() (*Config, error) {
	prefsFile := getEnvOrDefault("PREFERENCES_FILE", DefaultPreferencesFile)

	network := os.Getenv("NETWORK")
	if network == "" {
		saved, err := LoadNetworkPreference(prefsFile)
		if err != nil {
			return nil, fmt.Errorf("load network preference: %w", err)
		}
		network = saved
	}
	if network == "" {
		network = NetworkTestnet
	}
	network = strings.ToLower(network)

	preset, ok := LookupNetwork(network)
	if !ok {
		return nil, fmt.Errorf("NETWORK must be one of %v, got %q", NetworkNames(), network)
	}

	cfg := &Config{
		// Application defaults
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", LogFormatJSON),
		HTTPPort:        getEnvOrDefault("HTTP_PORT", "8080"),
		PreferencesFile: prefsFile,

		// Network defaults come from the preset
		Network:     network,
		ChainID:     preset.ChainID,
		RPCURL:      getEnvOrDefault("RPC_URL", preset.RPCURL),
		ExplorerURL: getEnvOrDefault("EXPLORER_URL", preset.ExplorerURL),

		// REST API defaults
		APIBaseURL: getEnvOrDefault("API_BASE_URL", preset.APIBaseURL),
		APITimeout: getDurationOrDefault("API_TIMEOUT", 15*time.Second),

		// Wallet defaults
		WalletMode:     getEnvOrDefault("WALLET_MODE", WalletModeKey),
		WalletRPCURL:   os.Getenv("WALLET_RPC_URL"),
		AccountAddress: os.Getenv("ACCOUNT_ADDRESS"),
		PrivateKey:     os.Getenv("PRIVATE_KEY"),
		FallbackGas:    uint64(getIntOrDefault("FALLBACK_GAS_LIMIT", 500000)),

		// Contracts
		PredictionMarketAddress: os.Getenv("PREDICTION_MARKET_ADDRESS"),
		TokenAddress:            os.Getenv("TOKEN_ADDRESS"),
		TokenDecimals:           uint8(getIntOrDefault("TOKEN_DECIMALS", 6)),

		// Trading defaults
		ReferralCode:       os.Getenv("REFERRAL_CODE"),
		DefaultSlippage:    getDecimalOrDefault("DEFAULT_SLIPPAGE", decimal.RequireFromString("0.01")),
		BundlePollInterval: getDurationOrDefault("BUNDLE_POLL_INTERVAL", 1*time.Second),
		AttemptResetDelay:  getDurationOrDefault("ATTEMPT_RESET_DELAY", 3*time.Second),

		// Cache defaults
		CacheTTL:      getDurationOrDefault("CACHE_TTL", 30*time.Second),
		CacheMaxItems: int64(getIntOrDefault("CACHE_MAX_ITEMS", 1000)),

		BalancePollInterval: getDurationOrDefault("BALANCE_POLL_INTERVAL", 30*time.Second),

		// Circuit breaker defaults
		BreakerEnabled:         getBoolOrDefault("BREAKER_ENABLED", false),
		BreakerCheckInterval:   getDurationOrDefault("BREAKER_CHECK_INTERVAL", 5*time.Minute),
		BreakerTradeMultiplier: getDecimalOrDefault("BREAKER_TRADE_MULTIPLIER", decimal.NewFromInt(3)),
		BreakerMinBalance:      getDecimalOrDefault("BREAKER_MIN_BALANCE", decimal.NewFromInt(5)),
		BreakerHysteresisRatio: getDecimalOrDefault("BREAKER_HYSTERESIS_RATIO", decimal.RequireFromString("1.5")),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", StorageModeConsole),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "polkamarkets"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "polkamarkets"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "polkamarkets_trader"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid. Contract and wallet
// settings are only checked for format here; see ValidateTrading.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if _, ok := LookupNetwork(c.Network); !ok {
		return fmt.Errorf("NETWORK must be one of %v, got %q", NetworkNames(), c.Network)
	}

	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL cannot be empty")
	}

	if c.PredictionMarketAddress != "" && !common.IsHexAddress(c.PredictionMarketAddress) {
		return fmt.Errorf("PREDICTION_MARKET_ADDRESS is not a valid address: %q", c.PredictionMarketAddress)
	}

	if c.TokenAddress != "" && !common.IsHexAddress(c.TokenAddress) {
		return fmt.Errorf("TOKEN_ADDRESS is not a valid address: %q", c.TokenAddress)
	}

	if c.AccountAddress != "" && !common.IsHexAddress(c.AccountAddress) {
		return fmt.Errorf("ACCOUNT_ADDRESS is not a valid address: %q", c.AccountAddress)
	}

	if c.TokenDecimals > 36 {
		return fmt.Errorf("TOKEN_DECIMALS must be <= 36, got %d", c.TokenDecimals)
	}

	if c.DefaultSlippage.IsNegative() || c.DefaultSlippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("DEFAULT_SLIPPAGE must be in [0, 1), got %s", c.DefaultSlippage)
	}

	if c.BundlePollInterval <= 0 {
		return fmt.Errorf("BUNDLE_POLL_INTERVAL must be positive, got %s", c.BundlePollInterval)
	}

	if c.AttemptResetDelay < 0 {
		return fmt.Errorf("ATTEMPT_RESET_DELAY cannot be negative, got %s", c.AttemptResetDelay)
	}

	if c.WalletMode != WalletModeBatch && c.WalletMode != WalletModeKey {
		return fmt.Errorf("WALLET_MODE must be 'batch' or 'key', got %q", c.WalletMode)
	}

	if c.BreakerEnabled {
		if c.BreakerCheckInterval <= 0 {
			return fmt.Errorf("BREAKER_CHECK_INTERVAL must be positive, got %s", c.BreakerCheckInterval)
		}
		if !c.BreakerMinBalance.IsPositive() {
			return fmt.Errorf("BREAKER_MIN_BALANCE must be positive, got %s", c.BreakerMinBalance)
		}
		if c.BreakerHysteresisRatio.LessThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("BREAKER_HYSTERESIS_RATIO must be >= 1, got %s", c.BreakerHysteresisRatio)
		}
	}

	switch c.StorageMode {
	case StorageModeConsole, StorageModePostgres, StorageModeNone:
	default:
		return fmt.Errorf("STORAGE_MODE must be 'console', 'postgres' or 'none', got %q", c.StorageMode)
	}

	return nil
}

// ValidateTrading checks the settings needed to build and submit transactions.
func (c *Config) ValidateTrading() error {
	if c.PredictionMarketAddress == "" {
		return fmt.Errorf("PREDICTION_MARKET_ADDRESS not set")
	}

	if c.TokenAddress == "" {
		return fmt.Errorf("TOKEN_ADDRESS not set")
	}

	switch c.WalletMode {
	case WalletModeBatch:
		if c.WalletRPCURL == "" {
			return fmt.Errorf("WALLET_RPC_URL not set (required in batch wallet mode)")
		}
		if c.AccountAddress == "" {
			return fmt.Errorf("ACCOUNT_ADDRESS not set (required in batch wallet mode)")
		}
	case WalletModeKey:
		if c.PrivateKey == "" {
			return fmt.Errorf("PRIVATE_KEY not set (required in key wallet mode)")
		}
	}

	return nil
}

// PredictionMarket returns the prediction market contract address.
func (c *Config) PredictionMarket() common.Address {
	return common.HexToAddress(c.PredictionMarketAddress)
}

// Token returns the collateral token address.
func (c *Config) Token() common.Address {
	return common.HexToAddress(c.TokenAddress)
}

// TxURL returns the explorer link for a transaction hash.
func (c *Config) TxURL(hash string) string {
	return strings.TrimRight(c.ExplorerURL, "/") + "/tx/" + hash
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDecimalOrDefault(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return defaultValue
	}

	return d
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
