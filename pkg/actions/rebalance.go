package actions

import (
	"context"
	"fmt"
	"strings"

	"seidefi/pkg/amm"
	"seidefi/pkg/oracle"
)

// PriceFeed is the price surface of oracle.Oracle.
type PriceFeed interface {
	GetPrice(ctx context.Context, symbol string) (*oracle.Quote, error)
}

// RebalanceDefaults are the per-event cost estimates and thresholds applied
// when a rebalance is triggered from chat rather than programmatically.
type RebalanceDefaults struct {
	FeeDelta      float64
	SlippageDelta float64
	Threshold     float64
	RangeWidth    float64
}

func (d *RebalanceDefaults) normalise() {
	if d.Threshold <= 0 {
		d.Threshold = 0.02
	}
	if d.RangeWidth <= 0 {
		d.RangeWidth = 0.1
	}
}

// RebalanceAction manages AMM liquidity positions: init, rebalance, dynamic
// range updates and analytics.
type RebalanceAction struct {
	manager  *amm.Manager
	prices   PriceFeed
	defaults RebalanceDefaults
}

// NewRebalanceAction wires the AMM position handler.
func NewRebalanceAction(manager *amm.Manager, prices PriceFeed, defaults RebalanceDefaults) *RebalanceAction {
	defaults.normalise()
	return &RebalanceAction{manager: manager, prices: prices, defaults: defaults}
}

func (a *RebalanceAction) Name() string { return "rebalance" }

func (a *RebalanceAction) Description() string {
	return "manage AMM liquidity positions: create, rebalance, set dynamic range, show analytics"
}

func (a *RebalanceAction) ParamNames() []string {
	return []string{"operation", "pair", "min", "max", "size"}
}

func (a *RebalanceAction) Validate(msg Message) bool {
	return containsAny(msg.Text, "rebalance", "liquidity", "lp position", "amm", "range")
}

func (a *RebalanceAction) Execute(ctx context.Context, msg Message) *Result {
	base, quote, okPair := parsePair(msg, "pair")
	pair := base + "/" + quote

	switch {
	case containsAny(msg.Text, "init", "create", "open", "provide"):
		if !okPair {
			return errorResult("I need the pair to create a position for, e.g. \"create liquidity position ETH/USDC 1800 2200 1000\".")
		}
		return a.initPosition(pair, msg)
	case containsAny(msg.Text, "dynamic", "recenter", "recentre", "set range"):
		if !okPair {
			return errorResult("I need the pair to re-range, e.g. \"set dynamic range for ETH/USDC\".")
		}
		return a.dynamicRange(ctx, base, pair)
	case containsAny(msg.Text, "analytics", "stats", "status", "show"):
		return a.analytics(pair, okPair)
	default:
		if !okPair {
			return a.rebalanceAll(ctx)
		}
		return a.rebalance(ctx, base, pair)
	}
}

func (a *RebalanceAction) initPosition(pair string, msg Message) *Result {
	amounts := parseAmounts(msg.Text)
	if len(amounts) < 3 {
		return errorResult("I need min price, max price and size, e.g. \"create liquidity position %s 1800 2200 1000\".", pair)
	}
	minPrice, maxPrice, size := amounts[0], amounts[1], amounts[2]
	if err := a.manager.InitPosition(pair, minPrice, maxPrice, size); err != nil {
		return errorResult("couldn't create the %s position: %v", pair, err)
	}
	return &Result{
		Text: fmt.Sprintf("Created %s liquidity position: range [%s, %s], size %s.",
			pair, formatAmount(minPrice), formatAmount(maxPrice), formatAmount(size)),
		Content: map[string]any{"pair": pair, "min": minPrice, "max": maxPrice, "size": size},
	}
}

func (a *RebalanceAction) rebalance(ctx context.Context, base, pair string) *Result {
	quote, err := a.prices.GetPrice(ctx, base)
	if err != nil {
		return errorResult("couldn't price %s to rebalance %s: %v", base, pair, err)
	}
	moved, err := a.manager.Rebalance(pair, quote.Price, a.defaults.FeeDelta, a.defaults.SlippageDelta, a.defaults.Threshold)
	if err != nil {
		return errorResult("rebalance of %s failed: %v", pair, err)
	}
	if !moved {
		return textResult("%s is within its range at %s; no rebalance needed.", pair, formatAmount(quote.Price))
	}
	return &Result{
		Text:    fmt.Sprintf("Rebalanced %s around %s.", pair, formatAmount(quote.Price)),
		Content: map[string]any{"pair": pair, "price": quote.Price},
	}
}

func (a *RebalanceAction) rebalanceAll(ctx context.Context) *Result {
	symbols := a.manager.Symbols()
	if len(symbols) == 0 {
		return textResult("No liquidity positions to rebalance.")
	}

	prices := make(map[string]float64, len(symbols))
	for _, pair := range symbols {
		base := pair
		if idx := strings.Index(pair, "/"); idx > 0 {
			base = pair[:idx]
		}
		quote, err := a.prices.GetPrice(ctx, base)
		if err != nil {
			continue // skip unpriceable pairs, rebalance the rest
		}
		prices[pair] = quote.Price
	}

	moved, err := a.manager.RebalanceAll(prices, a.defaults.FeeDelta, a.defaults.SlippageDelta, a.defaults.Threshold)
	if err != nil {
		return errorResult("rebalance sweep failed: %v", err)
	}

	var rebalanced []string
	for pair, did := range moved {
		if did {
			rebalanced = append(rebalanced, pair)
		}
	}
	if len(rebalanced) == 0 {
		return textResult("Checked %d positions; all within range.", len(prices))
	}
	return &Result{
		Text:    fmt.Sprintf("Rebalanced %s; the rest are within range.", strings.Join(rebalanced, ", ")),
		Content: map[string]any{"rebalanced": rebalanced},
	}
}

func (a *RebalanceAction) dynamicRange(ctx context.Context, base, pair string) *Result {
	quote, err := a.prices.GetPrice(ctx, base)
	if err != nil {
		return errorResult("couldn't price %s to re-range %s: %v", base, pair, err)
	}
	rng, err := a.manager.SetDynamicRange(pair, quote.Price, a.defaults.RangeWidth)
	if err != nil {
		return errorResult("couldn't set a dynamic range for %s: %v", pair, err)
	}
	return &Result{
		Text: fmt.Sprintf("Set %s range to [%s, %s] around %s.",
			pair, formatAmount(rng.Min), formatAmount(rng.Max), formatAmount(quote.Price)),
		Content: map[string]any{"pair": pair, "min": rng.Min, "max": rng.Max},
	}
}

func (a *RebalanceAction) analytics(pair string, okPair bool) *Result {
	if okPair {
		stats, ok := a.manager.Analytics(pair)
		if !ok {
			return errorResult("no liquidity position tracked for %s.", pair)
		}
		return &Result{
			Text: fmt.Sprintf("%s: %d rebalances, $%.2f fees, $%.2f slippage.",
				pair, stats.Rebalances, stats.Fees, stats.Slippage),
			Content: map[string]any{"pair": pair, "analytics": stats},
		}
	}

	symbols := a.manager.Symbols()
	if len(symbols) == 0 {
		return textResult("No liquidity positions tracked.")
	}
	var b strings.Builder
	b.WriteString("Liquidity positions:\n")
	for _, sym := range symbols {
		if stats, ok := a.manager.Analytics(sym); ok {
			fmt.Fprintf(&b, "- %s: %d rebalances, $%.2f fees, $%.2f slippage\n",
				sym, stats.Rebalances, stats.Fees, stats.Slippage)
		}
	}
	return &Result{Text: b.String(), Content: map[string]any{"pairs": symbols}}
}
