package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/polkamarkets-trader/internal/app"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim winnings or voided outcome shares",
	Long: `Claims winnings of a resolved market, or with --voided the shares of
one outcome of a voided market.

Examples:
  claim --market 42
  claim --market 42 --voided --outcome 1`,
	RunE: runClaim,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(claimCmd)
	claimCmd.Flags().Uint64P("market", "m", 0, "Market id")
	claimCmd.Flags().Int64P("outcome", "o", -1, "Outcome id (required with --voided)")
	claimCmd.Flags().Bool("voided", false, "Claim voided outcome shares instead of winnings")
	claimCmd.Flags().Duration("timeout", 5*time.Minute, "How long to wait for confirmation")
	_ = claimCmd.MarkFlagRequired("market")
}

func claimFlags(cmd *cobra.Command) (types.ClaimParams, error) {
	marketID, _ := cmd.Flags().GetUint64("market")
	outcome, _ := cmd.Flags().GetInt64("outcome")
	voided, _ := cmd.Flags().GetBool("voided")

	p := types.ClaimParams{Action: types.ActionClaimWinnings, MarketID: marketID}
	if voided {
		p.Action = types.ActionClaimVoided
	}
	if outcome >= 0 {
		id := uint64(outcome)
		p.OutcomeID = &id
	}

	return p, p.Validate()
}

func runClaim(cmd *cobra.Command, args []string) error {
	p, err := claimFlags(cmd)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	return withComponents(ctx, true, func(c *app.Components, logger *zap.Logger) error {
		fmt.Fprintf(cmd.OutOrStdout(), "%s market %d\n", p.Action, p.MarketID)

		attempt, err := c.Tracker.Claim(ctx, p)
		if err != nil {
			return err
		}

		return awaitAttempt(ctx, cmd.OutOrStdout(), c.Tracker, attempt)
	})
}
