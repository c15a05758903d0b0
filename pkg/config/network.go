package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/joho/godotenv"
)

// Network names.
const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

// DefaultPreferencesFile stores the persisted network choice in dotenv format.
const DefaultPreferencesFile = ".polkamarkets-trader.env"

const networkPreferenceKey = "NETWORK"

// NetworkPreset holds the values derived from a network selection.
type NetworkPreset struct {
	ChainID     uint64
	RPCURL      string
	ExplorerURL string
	APIBaseURL  string
}

//nolint:gochecknoglobals // read-only presets
var networks = map[string]NetworkPreset{
	NetworkMainnet: {
		ChainID:     2741,
		RPCURL:      "https://api.mainnet.abs.xyz",
		ExplorerURL: "https://abscan.org",
		APIBaseURL:  "https://api.polkamarkets.com",
	},
	NetworkTestnet: {
		ChainID:     11124,
		RPCURL:      "https://api.testnet.abs.xyz",
		ExplorerURL: "https://sepolia.abscan.org",
		APIBaseURL:  "https://api-staging.polkamarkets.com",
	},
}

// LookupNetwork returns the preset for a network name.
func LookupNetwork(name string) (NetworkPreset, bool) {
	preset, ok := networks[name]
	return preset, ok
}

// NetworkNames lists the known networks in sorted order.
func NetworkNames() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadNetworkPreference reads the persisted network. A missing file is not an error.
func LoadNetworkPreference(path string) (network string, err error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	return values[networkPreferenceKey], nil
}

// SaveNetworkPreference persists the network choice, keeping other keys in the file.
func SaveNetworkPreference(path string, network string) error {
	if _, ok := LookupNetwork(network); !ok {
		return fmt.Errorf("unknown network %q, expected one of %v", network, NetworkNames())
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		values = make(map[string]string)
	}

	values[networkPreferenceKey] = network

	err = godotenv.Write(values, path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
