package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		HTTPPort:                "8080",
		Network:                 NetworkTestnet,
		APIBaseURL:              "https://api.test",
		WalletMode:              WalletModeKey,
		PredictionMarketAddress: "0x2222222222222222222222222222222222222222",
		TokenAddress:            "0x1111111111111111111111111111111111111111",
		TokenDecimals:           6,
		DefaultSlippage:         decimal.RequireFromString("0.01"),
		BundlePollInterval:      time.Second,
		AttemptResetDelay:       3 * time.Second,
		StorageMode:             StorageModeConsole,
	}
}

func isolatePreferences(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.env")
	t.Setenv("PREFERENCES_FILE", path)
	return path
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	isolatePreferences(t)
	t.Setenv("NETWORK", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, NetworkTestnet, cfg.Network)
	assert.Equal(t, uint64(11124), cfg.ChainID)
	assert.Equal(t, uint8(6), cfg.TokenDecimals)
	assert.Equal(t, 1*time.Second, cfg.BundlePollInterval)
	assert.Equal(t, 3*time.Second, cfg.AttemptResetDelay)
	assert.True(t, cfg.DefaultSlippage.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, WalletModeKey, cfg.WalletMode)
	assert.Equal(t, StorageModeConsole, cfg.StorageMode)
	assert.False(t, cfg.BreakerEnabled)
	assert.True(t, cfg.BreakerMinBalance.Equal(decimal.NewFromInt(5)))
}

func TestLoadFromEnv_NetworkPreset(t *testing.T) {
	isolatePreferences(t)
	t.Setenv("NETWORK", "MAINNET")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	preset, _ := LookupNetwork(NetworkMainnet)
	assert.Equal(t, NetworkMainnet, cfg.Network)
	assert.Equal(t, preset.ChainID, cfg.ChainID)
	assert.Equal(t, preset.RPCURL, cfg.RPCURL)
	assert.Equal(t, preset.APIBaseURL, cfg.APIBaseURL)
}

func TestLoadFromEnv_PresetOverrides(t *testing.T) {
	isolatePreferences(t)
	t.Setenv("NETWORK", "testnet")
	t.Setenv("RPC_URL", "http://localhost:8545")
	t.Setenv("API_BASE_URL", "http://localhost:3000")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.RPCURL)
	assert.Equal(t, "http://localhost:3000", cfg.APIBaseURL)
}

func TestLoadFromEnv_PersistedPreference(t *testing.T) {
	path := isolatePreferences(t)
	t.Setenv("NETWORK", "")

	require.NoError(t, SaveNetworkPreference(path, NetworkMainnet))

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, NetworkMainnet, cfg.Network)

	// env wins over the saved preference
	t.Setenv("NETWORK", NetworkTestnet)
	cfg, err = LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, NetworkTestnet, cfg.Network)
}

func TestLoadFromEnv_UnknownNetwork(t *testing.T) {
	isolatePreferences(t)
	t.Setenv("NETWORK", "goerli")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NETWORK must be one of")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "empty-port",
			mutate:  func(c *Config) { c.HTTPPort = "" },
			wantErr: "HTTP_PORT cannot be empty",
		},
		{
			name:    "bad-token-address",
			mutate:  func(c *Config) { c.TokenAddress = "0x123" },
			wantErr: "TOKEN_ADDRESS is not a valid address",
		},
		{
			name:    "bad-market-address",
			mutate:  func(c *Config) { c.PredictionMarketAddress = "not-an-address" },
			wantErr: "PREDICTION_MARKET_ADDRESS is not a valid address",
		},
		{
			name:    "slippage-too-high",
			mutate:  func(c *Config) { c.DefaultSlippage = decimal.NewFromInt(1) },
			wantErr: "DEFAULT_SLIPPAGE must be in [0, 1)",
		},
		{
			name:    "zero-poll-interval",
			mutate:  func(c *Config) { c.BundlePollInterval = 0 },
			wantErr: "BUNDLE_POLL_INTERVAL must be positive",
		},
		{
			name:    "negative-reset-delay",
			mutate:  func(c *Config) { c.AttemptResetDelay = -time.Second },
			wantErr: "ATTEMPT_RESET_DELAY cannot be negative",
		},
		{
			name:    "bad-wallet-mode",
			mutate:  func(c *Config) { c.WalletMode = "metamask" },
			wantErr: "WALLET_MODE must be 'batch' or 'key'",
		},
		{
			name: "breaker-min-balance",
			mutate: func(c *Config) {
				c.BreakerEnabled = true
				c.BreakerCheckInterval = time.Minute
				c.BreakerHysteresisRatio = decimal.NewFromInt(2)
			},
			wantErr: "BREAKER_MIN_BALANCE must be positive",
		},
		{
			name: "breaker-hysteresis",
			mutate: func(c *Config) {
				c.BreakerEnabled = true
				c.BreakerCheckInterval = time.Minute
				c.BreakerMinBalance = decimal.NewFromInt(5)
				c.BreakerHysteresisRatio = decimal.RequireFromString("0.5")
			},
			wantErr: "BREAKER_HYSTERESIS_RATIO must be >= 1",
		},
		{
			name: "breaker-disabled-ignores-thresholds",
			mutate: func(c *Config) {
				c.BreakerHysteresisRatio = decimal.RequireFromString("0.5")
			},
		},
		{
			name:    "bad-storage-mode",
			mutate:  func(c *Config) { c.StorageMode = "sqlite" },
			wantErr: "STORAGE_MODE must be",
		},
		{
			name:    "too-many-decimals",
			mutate:  func(c *Config) { c.TokenDecimals = 40 },
			wantErr: "TOKEN_DECIMALS must be <= 36",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateTrading(t *testing.T) {
	t.Run("key-mode-requires-private-key", func(t *testing.T) {
		cfg := validConfig()
		err := cfg.ValidateTrading()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PRIVATE_KEY")

		cfg.PrivateKey = "0xabc"
		assert.NoError(t, cfg.ValidateTrading())
	})

	t.Run("batch-mode-requires-endpoint-and-account", func(t *testing.T) {
		cfg := validConfig()
		cfg.WalletMode = WalletModeBatch

		err := cfg.ValidateTrading()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "WALLET_RPC_URL")

		cfg.WalletRPCURL = "http://wallet.local"
		err = cfg.ValidateTrading()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ACCOUNT_ADDRESS")

		cfg.AccountAddress = "0x3333333333333333333333333333333333333333"
		assert.NoError(t, cfg.ValidateTrading())
	})

	t.Run("missing-contract", func(t *testing.T) {
		cfg := validConfig()
		cfg.PredictionMarketAddress = ""
		err := cfg.ValidateTrading()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PREDICTION_MARKET_ADDRESS")
	})
}

func TestConfig_TxURL(t *testing.T) {
	cfg := validConfig()
	cfg.ExplorerURL = "https://sepolia.abscan.org/"
	assert.Equal(t, "https://sepolia.abscan.org/tx/0xabc", cfg.TxURL("0xabc"))
}

func TestGetDecimalOrDefault(t *testing.T) {
	def := decimal.RequireFromString("0.5")

	os.Setenv("TEST_DECIMAL_VAR", "0.25")
	t.Cleanup(func() { os.Unsetenv("TEST_DECIMAL_VAR") })
	assert.True(t, getDecimalOrDefault("TEST_DECIMAL_VAR", def).Equal(decimal.RequireFromString("0.25")))

	os.Setenv("TEST_DECIMAL_VAR", "abc")
	assert.True(t, getDecimalOrDefault("TEST_DECIMAL_VAR", def).Equal(def))
}

func TestGetDurationOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{name: "valid", envValue: "250ms", want: 250 * time.Millisecond},
		{name: "invalid", envValue: "soon", want: time.Minute},
		{name: "empty", envValue: "", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("TEST_DURATION_VAR", tt.envValue)
			t.Cleanup(func() { os.Unsetenv("TEST_DURATION_VAR") })

			got := getDurationOrDefault("TEST_DURATION_VAR", time.Minute)
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestGetBoolOrDefault(t *testing.T) {
	t.Setenv("TEST_BOOL_VAR", "true")
	assert.True(t, getBoolOrDefault("TEST_BOOL_VAR", false))

	t.Setenv("TEST_BOOL_VAR", "nope")
	assert.True(t, getBoolOrDefault("TEST_BOOL_VAR", true))

	t.Setenv("TEST_BOOL_VAR", "")
	assert.False(t, getBoolOrDefault("TEST_BOOL_VAR", false))
}
