package actions

import (
	"context"
	"regexp"
	"strings"

	"seidefi/pkg/perp"
)

var (
	openPerpPattern  = regexp.MustCompile(`(?i)\b(long|short)\s+([A-Za-z]{2,10})\b`)
	closePerpPattern = regexp.MustCompile(`(?i)\bclose\s+(?:my\s+)?([A-Za-z]{2,10})\s+(?:perp|position)\b`)
)

const (
	defaultPerpLeverage    = 1
	defaultPerpSlippageBps = 50
)

// ProviderSelector resolves the perp venue; georouter.Router satisfies it.
type ProviderSelector interface {
	SelectProvider() (perp.Provider, error)
}

// PerpTradeAction opens and closes perpetual futures positions on the venue
// the geographic router selects.
type PerpTradeAction struct {
	router ProviderSelector
}

// NewPerpTradeAction wires the perp trading handler.
func NewPerpTradeAction(router ProviderSelector) *PerpTradeAction {
	return &PerpTradeAction{router: router}
}

func (a *PerpTradeAction) Name() string { return "perp-trade" }

func (a *PerpTradeAction) Description() string {
	return "open or close a perpetual futures position (long/short with optional leverage)"
}

func (a *PerpTradeAction) ParamNames() []string {
	return []string{"side", "symbol", "size_usd", "leverage"}
}

func (a *PerpTradeAction) Validate(msg Message) bool {
	return openPerpPattern.MatchString(msg.Text) || closePerpPattern.MatchString(msg.Text)
}

func (a *PerpTradeAction) Execute(ctx context.Context, msg Message) *Result {
	provider, err := a.router.SelectProvider()
	if err != nil {
		return errorResult("no perp venue is available: %v", err)
	}

	if m := closePerpPattern.FindStringSubmatch(msg.Text); m != nil {
		return a.close(ctx, provider, strings.ToUpper(m[1]), msg)
	}
	return a.open(ctx, provider, msg)
}

func (a *PerpTradeAction) open(ctx context.Context, provider perp.Provider, msg Message) *Result {
	side, symbol, ok := a.parseOpen(msg)
	if !ok {
		return errorResult("I couldn't parse the trade. Try e.g. \"long ETH with $1000 at 3x\".")
	}
	size, ok := parseAmount(msg, "size_usd")
	if !ok || size <= 0 {
		return errorResult("I couldn't find a position size. Include a USD amount, e.g. \"$1000\".")
	}
	leverage := parseLeverage(msg, "leverage")
	if leverage <= 0 {
		leverage = defaultPerpLeverage
	}

	tx, err := provider.OpenPosition(ctx, perp.OpenParams{
		Symbol:      symbol,
		Side:        side,
		SizeUSD:     size,
		Leverage:    leverage,
		SlippageBps: defaultPerpSlippageBps,
	})
	if err != nil {
		return errorResult("couldn't open the %s %s position on %s: %v", side, symbol, provider.Name(), err)
	}

	return &Result{
		Text: "Opened " + string(side) + " " + symbol + " for $" + formatAmount(size) + " at " + formatAmount(float64(leverage)) + "x on " + provider.Name() + ". Ref: " + tx,
		Content: map[string]any{
			"side":     string(side),
			"symbol":   symbol,
			"size_usd": size,
			"leverage": leverage,
			"provider": provider.Name(),
			"ref":      tx,
		},
	}
}

func (a *PerpTradeAction) close(ctx context.Context, provider perp.Provider, symbol string, msg Message) *Result {
	size, _ := parseAmount(msg, "size_usd") // zero closes the full position

	tx, err := provider.ClosePosition(ctx, symbol, size)
	if err != nil {
		return errorResult("couldn't close the %s position on %s: %v", symbol, provider.Name(), err)
	}
	return &Result{
		Text: "Closed " + symbol + " position on " + provider.Name() + ". Ref: " + tx,
		Content: map[string]any{
			"symbol":   symbol,
			"provider": provider.Name(),
			"ref":      tx,
		},
	}
}

func (a *PerpTradeAction) parseOpen(msg Message) (perp.Side, string, bool) {
	if m := openPerpPattern.FindStringSubmatch(msg.Text); m != nil {
		side := perp.SideLong
		if strings.EqualFold(m[1], "short") {
			side = perp.SideShort
		}
		return side, strings.ToUpper(m[2]), true
	}
	sideParam := strings.ToLower(msg.Param("side"))
	symbol := strings.ToUpper(msg.Param("symbol"))
	if symbol == "" {
		return "", "", false
	}
	switch sideParam {
	case "long":
		return perp.SideLong, symbol, true
	case "short":
		return perp.SideShort, symbol, true
	}
	return "", "", false
}
