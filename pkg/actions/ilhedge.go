package actions

import (
	"context"
	"fmt"
	"strings"

	"seidefi/pkg/ilrisk"
)

var defaultScenarioChanges = []float64{-0.5, -0.25, 0.25, 0.5}

// ILHedgeAction analyzes impermanent-loss risk on LP positions and triggers
// protection through the risk engine.
type ILHedgeAction struct {
	engine *ilrisk.Engine
}

// NewILHedgeAction wires the IL risk handler.
func NewILHedgeAction(engine *ilrisk.Engine) *ILHedgeAction {
	return &ILHedgeAction{engine: engine}
}

func (a *ILHedgeAction) Name() string { return "il-hedge" }

func (a *ILHedgeAction) Description() string {
	return "analyze impermanent-loss risk on an LP position, hedge it, or simulate IL scenarios"
}

func (a *ILHedgeAction) ParamNames() []string {
	return []string{"operation", "pair", "value_usd"}
}

func (a *ILHedgeAction) Validate(msg Message) bool {
	return containsAny(msg.Text, "impermanent", "il risk", "il hedge", "hedge my")
}

func (a *ILHedgeAction) Execute(ctx context.Context, msg Message) *Result {
	pos, res := a.parsePosition(msg)
	if res != nil {
		return res
	}

	switch {
	case containsAny(msg.Text, "simulate", "scenario", "what if"):
		return a.simulate(pos)
	case containsAny(msg.Text, "protect", "hedge"):
		return a.protect(ctx, pos)
	default:
		return a.analyze(pos)
	}
}

func (a *ILHedgeAction) parsePosition(msg Message) (ilrisk.LPPosition, *Result) {
	base, quote, ok := parsePair(msg, "pair")
	if !ok {
		return ilrisk.LPPosition{}, errorResult("I need the LP pair, e.g. \"analyze IL risk for my ETH/USDC position worth $10000\".")
	}
	value, ok := parseAmount(msg, "value_usd")
	if !ok || value <= 0 {
		return ilrisk.LPPosition{}, errorResult("I need the position value in USD, e.g. \"$10000\".")
	}
	return ilrisk.LPPosition{
		Pair:     base + "/" + quote,
		Token0:   base,
		Token1:   quote,
		ValueUSD: value,
	}, nil
}

func (a *ILHedgeAction) analyze(pos ilrisk.LPPosition) *Result {
	metrics := a.engine.Assess(pos)
	strategy := a.engine.SelectStrategy(metrics, ilrisk.PreferenceAuto)

	text := fmt.Sprintf("%s ($%s): risk %s, current IL %.1f%%, projected IL %.1f%%. Recommended: %s",
		pos.Pair, formatAmount(pos.ValueUSD), metrics.Level, metrics.CurrentIL, metrics.ProjectedIL,
		describeStrategy(strategy))
	return &Result{
		Text:    text,
		Content: map[string]any{"pair": pos.Pair, "metrics": metrics, "strategy": strategy},
	}
}

func (a *ILHedgeAction) protect(ctx context.Context, pos ilrisk.LPPosition) *Result {
	metrics, strategy := a.engine.Protect(ctx, pos, ilrisk.PreferenceAuto)
	return &Result{
		Text: fmt.Sprintf("Protection applied to %s (risk %s): %s",
			pos.Pair, metrics.Level, describeStrategy(strategy)),
		Content: map[string]any{"pair": pos.Pair, "metrics": metrics, "strategy": strategy},
	}
}

func (a *ILHedgeAction) simulate(pos ilrisk.LPPosition) *Result {
	scenarios := a.engine.SimulateScenarios(pos, defaultScenarioChanges)

	var b strings.Builder
	fmt.Fprintf(&b, "IL scenarios for %s:\n", pos.Pair)
	for _, s := range scenarios {
		fmt.Fprintf(&b, "- price %+.0f%%: IL %.2f%%, hedged %.2f%%\n",
			s.PriceChange*100, s.IL, s.HedgedIL)
	}
	return &Result{Text: b.String(), Content: map[string]any{"pair": pos.Pair, "scenarios": scenarios}}
}

func describeStrategy(s ilrisk.Strategy) string {
	switch s.Kind {
	case ilrisk.StrategyPerpHedge:
		return fmt.Sprintf("perp hedge at %.0f%% of position value (%s)", s.HedgeRatio*100, s.Reason)
	case ilrisk.StrategyRebalanceOnly:
		return fmt.Sprintf("rebalance only (%s)", s.Reason)
	default:
		return fmt.Sprintf("%s (%s)", s.Kind, s.Reason)
	}
}
