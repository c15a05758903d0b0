package cmd

import (
	"fmt"

	"github.com/mselser95/polkamarkets-trader/internal/txbuilder"
	"github.com/mselser95/polkamarkets-trader/pkg/config"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var buildCmd = &cobra.Command{
	Use:   "build <buy|sell|claim_winnings|claim_voided>",
	Short: "Print the call batch for an action without submitting it",
	Long: `Builds the ordered contract calls for an action and prints them as JSON.
Nothing is signed or sent. Buy and sell need --outcome. --shares defaults
to 0 (no slippage bound).`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"buy", "sell", "claim_winnings", "claim_voided"},
	RunE:      runBuild,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(buildCmd)
	addActionFlags(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	calls, err := buildCalls(cmd, args[0], cfg)
	if err != nil {
		return err
	}

	out := make([]types.CallJSON, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.JSON())
	}

	return printJSON(cmd.OutOrStdout(), out)
}

func buildCalls(cmd *cobra.Command, action string, cfg *config.Config) ([]types.Call, error) {
	if cfg.PredictionMarketAddress == "" {
		return nil, fmt.Errorf("PREDICTION_MARKET_ADDRESS not set")
	}
	contracts := txbuilder.Contracts{PredictionMarket: cfg.PredictionMarket()}

	switch action {
	case string(types.ActionBuy), string(types.ActionSell):
		p, err := tradeFlags(cmd, types.TradeAction(action))
		if err != nil {
			return nil, err
		}
		p.TokenAddress = cfg.Token()
		p.TokenDecimals = cfg.TokenDecimals
		p.ReferralCode = cfg.ReferralCode

		return txbuilder.BuildTradeTransaction(p, contracts)
	case string(types.ActionClaimWinnings), string(types.ActionClaimVoided):
		marketID, _ := cmd.Flags().GetUint64("market")
		outcomeID, _ := cmd.Flags().GetUint64("outcome")

		p := types.ClaimParams{Action: types.ClaimAction(action), MarketID: marketID}
		if action == string(types.ActionClaimVoided) && cmd.Flags().Changed("outcome") {
			p.OutcomeID = &outcomeID
		}
		return txbuilder.BuildClaimTransaction(p, contracts)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownAction, action)
	}
}
