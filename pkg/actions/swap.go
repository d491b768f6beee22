package actions

import (
	"context"
	"math/big"
	"regexp"
	"strings"

	"seidefi/pkg/chain"
	"seidefi/pkg/dex"
)

var swapPattern = regexp.MustCompile(`(?i)\bswap\s+\$?(\d+(?:\.\d+)?)\s+([A-Za-z]{2,10})\s+(?:to|for|into)\s+([A-Za-z]{2,10})\b`)

// Swapper is the quote/execute surface of dex.Aggregator.
type Swapper interface {
	Quote(ctx context.Context, tokenIn, tokenOut dex.Token, amountIn *big.Int) (*dex.QuoteResult, error)
	Swap(ctx context.Context, quote *dex.QuoteResult) (string, error)
}

// SwapAction swaps one token for another through the DEX aggregator.
type SwapAction struct {
	swapper Swapper
	tokens  *dex.Registry
}

// NewSwapAction wires the swap handler.
func NewSwapAction(swapper Swapper, tokens *dex.Registry) *SwapAction {
	return &SwapAction{swapper: swapper, tokens: tokens}
}

func (a *SwapAction) Name() string        { return "swap" }
func (a *SwapAction) Description() string { return "swap one token for another on the DEX" }
func (a *SwapAction) ParamNames() []string {
	return []string{"amount", "from", "to"}
}

func (a *SwapAction) Validate(msg Message) bool {
	return swapPattern.MatchString(msg.Text)
}

func (a *SwapAction) Execute(ctx context.Context, msg Message) *Result {
	amount, fromSym, toSym, ok := a.parseSwap(msg)
	if !ok {
		return errorResult("I couldn't parse the swap. Try e.g. \"swap 100 SEI to USDC\".")
	}

	from, err := a.tokens.Lookup(fromSym)
	if err != nil {
		return errorResult("I don't know the token %q.", fromSym)
	}
	to, err := a.tokens.Lookup(toSym)
	if err != nil {
		return errorResult("I don't know the token %q.", toSym)
	}
	if amount <= 0 {
		return errorResult("swap amount must be positive, got %v", amount)
	}

	quote, err := a.swapper.Quote(ctx, from, to, chain.ToBaseUnits(amount, from.Decimals))
	if err != nil {
		return errorResult("couldn't get a route for %s -> %s: %v", from.Symbol, to.Symbol, err)
	}
	tx, err := a.swapper.Swap(ctx, quote)
	if err != nil {
		return errorResult("swap execution failed: %v", err)
	}

	expectedOut := chain.FromBaseUnits(quote.AmountOut, to.Decimals)
	return &Result{
		Text: "Swapped " + formatAmount(amount) + " " + from.Symbol + " for ~" + formatAmount(expectedOut) + " " + to.Symbol + ". Tx: " + tx,
		Content: map[string]any{
			"from":         from.Symbol,
			"to":           to.Symbol,
			"amount_in":    amount,
			"expected_out": expectedOut,
			"price_impact": quote.PriceImpact,
			"tx":           tx,
		},
	}
}

func (a *SwapAction) parseSwap(msg Message) (amount float64, from, to string, ok bool) {
	if m := swapPattern.FindStringSubmatch(msg.Text); m != nil {
		amounts := parseAmounts(m[1])
		if len(amounts) == 1 {
			return amounts[0], strings.ToUpper(m[2]), strings.ToUpper(m[3]), true
		}
	}
	amountVal, okAmount := parseAmount(msg, "amount")
	fromSym := strings.ToUpper(msg.Param("from"))
	toSym := strings.ToUpper(msg.Param("to"))
	if okAmount && fromSym != "" && toSym != "" {
		return amountVal, fromSym, toSym, true
	}
	return 0, "", "", false
}
