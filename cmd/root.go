package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "polkamarkets-trader",
	Short: "Polkamarkets prediction market trading client",
	Long: `Trading client for Polkamarkets prediction markets.

Browses markets and portfolios through the Polkamarkets API, builds
approve+buy, sell and claim transactions, submits them through an
EIP-5792 wallet or a local key, and tracks each attempt until it is
confirmed or failed.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not read .env: %v\n", err)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
