package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/polkamarkets-trader/internal/app"
	"github.com/mselser95/polkamarkets-trader/internal/markets"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var portfolioCmd = &cobra.Command{
	Use:   "portfolio [address]",
	Short: "Show positions and trading history",
	Long: `Shows the positions, claimable winnings and recent events of an address.
Defaults to ACCOUNT_ADDRESS, or the address of PRIVATE_KEY in key mode.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPortfolio,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.Flags().Int("events", 10, "Number of recent events to show (0 hides them)")
	portfolioCmd.Flags().Bool("json", false, "Print raw JSON")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	maxEvents, _ := cmd.Flags().GetInt("events")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withComponents(ctx, false, func(c *app.Components, logger *zap.Logger) error {
		address, err := resolveAddress(args, c)
		if err != nil {
			return err
		}

		overview, err := c.Markets.Overview(ctx, address)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(cmd.OutOrStdout(), overview)
		}

		writePortfolio(cmd.OutOrStdout(), address, overview, maxEvents)
		return nil
	})
}

func resolveAddress(args []string, c *app.Components) (string, error) {
	switch {
	case len(args) == 1:
		if !common.IsHexAddress(args[0]) {
			return "", fmt.Errorf("invalid address %q", args[0])
		}
		return args[0], nil
	case c.Wallet != nil:
		return c.Wallet.Account().Hex(), nil
	case c.Config.AccountAddress != "":
		return c.Config.AccountAddress, nil
	default:
		return "", errors.New("no address given and no wallet configured")
	}
}

func writePortfolio(out io.Writer, address string, overview *markets.Overview, maxEvents int) {
	p := overview.Portfolio

	fmt.Fprintf(out, "Portfolio %s\n", address)
	if p != nil {
		fmt.Fprintf(out, "Open value: %s  Cost: %s  Claimable: %s\n\n",
			p.OpenValue.StringFixed(2), p.TotalCost.StringFixed(2), p.ClaimValue.StringFixed(2))
	}

	if p == nil || len(p.Positions) == 0 {
		fmt.Fprintln(out, "No positions.")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MARKET\tOUTCOME\tSHARES\tPRICE\tVALUE\tCLAIM")
		for i := range p.Positions {
			pos := &p.Positions[i]
			claim := "-"
			if action, ok := pos.Claimable(); ok {
				claim = string(action)
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
				pos.MarketSlug, pos.OutcomeID, pos.Shares.StringFixed(2), pos.Price.StringFixed(4), pos.Value.StringFixed(2), claim)
		}
		_ = w.Flush()
	}

	if maxEvents <= 0 || len(overview.Events) == 0 {
		return
	}

	events := overview.Events
	if len(events) > maxEvents {
		events = events[:maxEvents]
	}

	fmt.Fprintf(out, "\nRecent events\n")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tMARKET\tOUTCOME\tSHARES\tVALUE")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04"), e.Action, e.MarketSlug, e.OutcomeID, e.Shares.StringFixed(2), e.Value.StringFixed(2))
	}
	_ = w.Flush()
}
