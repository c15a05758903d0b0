package txbuilder

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ERC20 approve function ABI
const erc20ApproveABI = `[{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

// Prediction market trade and claim functions.
const predictionMarketABI = `[
	{"inputs":[{"name":"marketId","type":"uint256"},{"name":"outcomeId","type":"uint256"},{"name":"minOutcomeSharesToBuy","type":"uint256"},{"name":"value","type":"uint256"},{"name":"code","type":"string"}],"name":"referralBuy","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"marketId","type":"uint256"},{"name":"outcomeId","type":"uint256"},{"name":"value","type":"uint256"},{"name":"maxOutcomeSharesToSell","type":"uint256"},{"name":"code","type":"string"}],"name":"referralSell","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"marketId","type":"uint256"}],"name":"claimWinnings","outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"marketId","type":"uint256"},{"name":"outcomeId","type":"uint256"}],"name":"claimVoidedOutcomeShares","outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}
]`

//nolint:gochecknoglobals // parsed once, read-only
var (
	erc20ABI = mustParseABI(erc20ApproveABI)
	pmABI    = mustParseABI(predictionMarketABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("txbuilder: parse ABI: " + err.Error())
	}
	return parsed
}
