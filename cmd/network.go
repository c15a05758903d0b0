package cmd

import (
	"fmt"
	"os"

	"github.com/mselser95/polkamarkets-trader/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show the selected network",
	Long: `Shows the network in use and its chain settings. The selection comes
from NETWORK, then the preferences file, then testnet.`,
	RunE: runNetworkGet,
}

//nolint:gochecknoglobals // Cobra boilerplate
var networkSetCmd = &cobra.Command{
	Use:       "set <network>",
	Short:     "Persist the network selection",
	Args:      cobra.ExactArgs(1),
	ValidArgs: config.NetworkNames(),
	RunE:      runNetworkSet,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(networkCmd)
	networkCmd.AddCommand(networkSetCmd)
}

func runNetworkGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Network:  %s\n", cfg.Network)
	fmt.Fprintf(out, "Chain ID: %d\n", cfg.ChainID)
	fmt.Fprintf(out, "RPC:      %s\n", cfg.RPCURL)
	fmt.Fprintf(out, "API:      %s\n", cfg.APIBaseURL)
	fmt.Fprintf(out, "Explorer: %s\n", cfg.ExplorerURL)
	fmt.Fprintf(out, "Available: %v\n", config.NetworkNames())
	return nil
}

func runNetworkSet(cmd *cobra.Command, args []string) error {
	path := os.Getenv("PREFERENCES_FILE")
	if path == "" {
		path = config.DefaultPreferencesFile
	}

	err := config.SaveNetworkPreference(path, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Network set to %s (saved in %s)\n", args[0], path)
	if env := os.Getenv("NETWORK"); env != "" && env != args[0] {
		fmt.Fprintf(cmd.OutOrStdout(), "Note: NETWORK=%s in the environment still takes precedence\n", env)
	}
	return nil
}
