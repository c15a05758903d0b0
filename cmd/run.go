package cmd

import (
	"fmt"

	"github.com/mselser95/polkamarkets-trader/internal/app"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the trading daemon",
	Long: `Starts the HTTP daemon, which serves:
1. /api/markets and /api/portfolio reads through a TTL cache
2. /api/transactions/build, /api/trades and /api/claims
3. /api/attempt and /api/notifications for attempt progress
4. /metrics, /health and /ready

Without wallet settings the daemon runs read-only.`,
	RunE: runDaemon,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
