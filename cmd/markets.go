package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mselser95/polkamarkets-trader/internal/app"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "List markets from the Polkamarkets API",
	Long:  `Fetches markets for the selected network, paginating as needed.`,
	RunE:  runMarkets,
}

//nolint:gochecknoglobals // Cobra boilerplate
var marketCmd = &cobra.Command{
	Use:   "market <slug>",
	Short: "Show one market and its outcomes",
	Args:  cobra.ExactArgs(1),
	RunE:  runMarket,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(marketsCmd)
	rootCmd.AddCommand(marketCmd)

	marketsCmd.Flags().String("state", types.MarketStateOpen, "Market state: open, closed, resolved")
	marketsCmd.Flags().String("category", "", "Filter by category")
	marketsCmd.Flags().IntP("limit", "l", 20, "Maximum number of markets to fetch")
	marketsCmd.Flags().Int("offset", 0, "Number of markets to skip")
	marketsCmd.Flags().Bool("json", false, "Print raw JSON")

	marketCmd.Flags().Bool("json", false, "Print raw JSON")
}

func runMarkets(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	state, _ := cmd.Flags().GetString("state")
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	asJSON, _ := cmd.Flags().GetBool("json")

	filter := types.MarketFilter{State: state, Category: category, Limit: limit, Offset: offset}

	return withComponents(ctx, false, func(c *app.Components, logger *zap.Logger) error {
		list, err := c.Markets.ListMarkets(ctx, filter)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(cmd.OutOrStdout(), list)
		}

		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No markets found.")
			return nil
		}

		writeMarketsTable(cmd.OutOrStdout(), list)
		return nil
	})
}

func runMarket(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	asJSON, _ := cmd.Flags().GetBool("json")

	return withComponents(ctx, false, func(c *app.Components, logger *zap.Logger) error {
		market, err := c.Markets.GetMarket(ctx, args[0])
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(cmd.OutOrStdout(), market)
		}

		writeMarketDetail(cmd.OutOrStdout(), market)
		return nil
	})
}

func writeMarketsTable(out io.Writer, list []types.Market) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tSTATE\tOUTCOMES\tVOLUME\tEXPIRES")
	for i := range list {
		m := &list[i]
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Slug, m.State, outcomeSummary(m), m.Volume.StringFixed(2), m.ExpiresAt.Format("2006-01-02"))
	}
	_ = w.Flush()
}

func writeMarketDetail(out io.Writer, m *types.Market) {
	fmt.Fprintf(out, "%s\n", m.Title)
	fmt.Fprintf(out, "ID: %d  Slug: %s  State: %s\n", m.ID, m.Slug, m.State)
	if m.Token.Symbol != "" {
		fmt.Fprintf(out, "Token: %s (%s, %d decimals)\n", m.Token.Symbol, m.Token.Address, m.Token.Decimals)
	}
	fmt.Fprintf(out, "Liquidity: %s  Volume: %s  Expires: %s\n\n",
		m.Liquidity.StringFixed(2), m.Volume.StringFixed(2), m.ExpiresAt.Format(time.RFC3339))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OUTCOME\tTITLE\tPRICE\tSHARES")
	for _, o := range m.Outcomes {
		marker := ""
		if m.ResolvedOutcomeID != nil && *m.ResolvedOutcomeID == int64(o.ID) {
			marker = " (winner)"
		}
		fmt.Fprintf(w, "%d\t%s%s\t%s\t%s\n", o.ID, o.Title, marker, o.Price.StringFixed(4), o.Shares.StringFixed(2))
	}
	_ = w.Flush()
}

func outcomeSummary(m *types.Market) string {
	summary := ""
	for i, o := range m.Outcomes {
		if i > 0 {
			summary += " / "
		}
		summary += fmt.Sprintf("%s %s", o.Title, o.Price.StringFixed(2))
	}
	return summary
}
