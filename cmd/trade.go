package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mselser95/polkamarkets-trader/internal/app"
	"github.com/mselser95/polkamarkets-trader/internal/execution"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Buy outcome shares (approve + referralBuy in one batch)",
	Long: `Buys shares of an outcome. The token approval and the buy are sent as
one batch. Without --shares, the minimum is taken from a quote with the
configured slippage.

Example:
  buy --market 42 --outcome 1 --value 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrade(cmd, types.ActionBuy)
	},
}

//nolint:gochecknoglobals // Cobra boilerplate
var sellCmd = &cobra.Command{
	Use:   "sell",
	Short: "Sell outcome shares for a target amount of collateral",
	Long: `Sells shares of an outcome to receive --value collateral. Without
--shares, the maximum shares to give up is taken from a quote with the
configured slippage.

Example:
  sell --market 42 --outcome 1 --value 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrade(cmd, types.ActionSell)
	},
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	for _, c := range []*cobra.Command{buyCmd, sellCmd} {
		rootCmd.AddCommand(c)
		addActionFlags(c)
		_ = c.MarkFlagRequired("outcome")
		c.Flags().String("slippage", "", "Slippage applied to the quote (default DEFAULT_SLIPPAGE)")
		c.Flags().Duration("timeout", 5*time.Minute, "How long to wait for confirmation")
	}
}

func addActionFlags(c *cobra.Command) {
	c.Flags().Uint64P("market", "m", 0, "Market id")
	c.Flags().Uint64P("outcome", "o", 0, "Outcome id")
	c.Flags().StringP("value", "v", "", "Collateral amount in token units, e.g. 10.5")
	c.Flags().String("shares", "", "Share threshold: minimum received on buy, maximum given on sell")
	_ = c.MarkFlagRequired("market")
}

// tradeFlags reads the shared flags into trade params in human units. An
// omitted --outcome is an error; --shares 0 is an explicit bound.
func tradeFlags(cmd *cobra.Command, action types.TradeAction) (types.TradeParams, error) {
	marketID, _ := cmd.Flags().GetUint64("market")
	outcomeID, _ := cmd.Flags().GetUint64("outcome")
	rawValue, _ := cmd.Flags().GetString("value")
	rawShares, _ := cmd.Flags().GetString("shares")

	p := types.TradeParams{Action: action, MarketID: marketID, OutcomeID: outcomeID}

	if rawValue == "" {
		return p, fmt.Errorf("--value is required")
	}

	value, err := decimal.NewFromString(rawValue)
	if err != nil {
		return p, fmt.Errorf("invalid --value %q: %w", rawValue, err)
	}
	p.Value = value

	if rawShares != "" {
		shares, sharesErr := decimal.NewFromString(rawShares)
		if sharesErr != nil {
			return p, fmt.Errorf("invalid --shares %q: %w", rawShares, sharesErr)
		}
		p.SharesThreshold = shares
	}

	if !cmd.Flags().Changed("outcome") {
		return p, &types.ValidationError{Field: "outcomeId", Err: types.ErrMissingOutcome}
	}

	return p, nil
}

// sharesGiven reports whether --shares was set, zero included.
func sharesGiven(cmd *cobra.Command) bool {
	raw, _ := cmd.Flags().GetString("shares")
	return raw != ""
}

func runTrade(cmd *cobra.Command, action types.TradeAction) error {
	p, err := tradeFlags(cmd, action)
	if err != nil {
		return err
	}

	rawSlippage, _ := cmd.Flags().GetString("slippage")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	return withComponents(ctx, true, func(c *app.Components, logger *zap.Logger) error {
		cfg := c.Config
		p.TokenAddress = cfg.Token()
		p.TokenDecimals = cfg.TokenDecimals
		p.ReferralCode = cfg.ReferralCode

		slippage := cfg.DefaultSlippage
		if rawSlippage != "" {
			slippage, err = decimal.NewFromString(rawSlippage)
			if err != nil {
				return fmt.Errorf("invalid --slippage %q: %w", rawSlippage, err)
			}
		}

		err = p.Validate()
		if err != nil {
			return err
		}

		if !sharesGiven(cmd) {
			err = execution.ApplyQuotedThreshold(ctx, c.Markets, &p, slippage)
			if err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s market %d outcome %d: value %s, share threshold %s\n",
			p.Action, p.MarketID, p.OutcomeID, p.Value, p.SharesThreshold)

		if c.Breaker != nil && p.Action == types.ActionBuy {
			checkErr := c.Breaker.CheckBalance(ctx)
			if checkErr != nil {
				logger.Warn("circuit-breaker-check-failed", zap.Error(checkErr))
			}
		}

		attempt, err := c.Tracker.Trade(ctx, p)
		if err != nil {
			return err
		}

		return awaitAttempt(ctx, cmd.OutOrStdout(), c.Tracker, attempt)
	})
}

// awaitAttempt blocks until the attempt is terminal and prints the outcome.
// A failed attempt is returned as an error.
func awaitAttempt(ctx context.Context, out io.Writer, tracker *execution.Tracker, attempt *execution.Attempt) error {
	fmt.Fprintf(out, "Attempt %s submitted, waiting for confirmation...\n", attempt.ID)

	rec, err := tracker.Wait(ctx, attempt)
	if err != nil {
		return fmt.Errorf("attempt %s still %s: %w", rec.ID, rec.State, err)
	}

	writeAttemptResult(out, rec, attempt.TxURL())

	if rec.State != string(execution.StateConfirmed) {
		return fmt.Errorf("%s failed: %w", rec.Kind, attempt.Err())
	}
	return nil
}

func writeAttemptResult(out io.Writer, rec types.AttemptRecord, txURL string) {
	fmt.Fprintf(out, "State:    %s\n", rec.State)
	if rec.BundleID != "" {
		fmt.Fprintf(out, "Bundle:   %s\n", rec.BundleID)
	}
	if rec.TxHash != "" {
		fmt.Fprintf(out, "Tx:       %s\n", rec.TxHash)
	}
	if txURL != "" {
		fmt.Fprintf(out, "Explorer: %s\n", txURL)
	}
	if rec.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", rec.Error)
	}
	fmt.Fprintf(out, "Duration: %s\n", rec.Duration().Round(time.Millisecond))
}
