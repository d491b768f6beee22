package actions

import (
	"context"
	"fmt"
	"strings"

	"seidefi/pkg/fundingarb"
)

// FundingArbAction scans for funding-rate spreads and manages the resulting
// hedged positions.
type FundingArbAction struct {
	engine      *fundingarb.Engine
	symbols     []string
	notionalUSD float64
}

// NewFundingArbAction wires the funding-arbitrage handler. symbols is the
// scan universe; notionalUSD sizes executions unless the message overrides.
func NewFundingArbAction(engine *fundingarb.Engine, symbols []string, notionalUSD float64) *FundingArbAction {
	return &FundingArbAction{engine: engine, symbols: symbols, notionalUSD: notionalUSD}
}

func (a *FundingArbAction) Name() string { return "funding-arb" }

func (a *FundingArbAction) Description() string {
	return "scan cross-exchange funding-rate spreads, execute the best opportunity, or manage open arb positions"
}

func (a *FundingArbAction) ParamNames() []string {
	return []string{"operation", "position_id", "notional_usd"}
}

func (a *FundingArbAction) Validate(msg Message) bool {
	return containsAny(msg.Text, "funding", "arb")
}

func (a *FundingArbAction) Execute(ctx context.Context, msg Message) *Result {
	op := a.operation(msg)
	switch op {
	case "execute":
		return a.execute(ctx, msg)
	case "close":
		return a.close(ctx, msg)
	case "status":
		return a.status(ctx)
	default:
		return a.scan(ctx)
	}
}

func (a *FundingArbAction) operation(msg Message) string {
	switch {
	case containsAny(msg.Text, "close"):
		return "close"
	case containsAny(msg.Text, "execute", "enter", "take"):
		return "execute"
	case containsAny(msg.Text, "status", "position", "pnl"):
		return "status"
	case containsAny(msg.Text, "scan", "find", "opportun", "spread"):
		return "scan"
	}
	return msg.Param("operation")
}

func (a *FundingArbAction) scan(ctx context.Context) *Result {
	opps, err := a.engine.Scan(ctx, a.symbols, a.notionalUSD)
	if err != nil {
		return errorResult("funding scan failed: %v", err)
	}
	if len(opps) == 0 {
		return textResult("No funding-rate opportunities above the spread cutoff right now.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d funding opportunities (per $%s notional):\n", len(opps), formatAmount(a.notionalUSD))
	for i, opp := range opps {
		if i == 5 {
			fmt.Fprintf(&b, "... and %d more\n", len(opps)-5)
			break
		}
		fmt.Fprintf(&b, "%d. %s: long %s / short %s, spread %.4f%%, ~$%.0f/yr, risk %s, confidence %.2f\n",
			i+1, opp.Symbol, opp.LongExchange, opp.ShortExchange,
			opp.Spread*100, opp.AnnualProfit, opp.Risk, opp.Confidence)
	}
	return &Result{Text: b.String(), Content: map[string]any{"opportunities": opps}}
}

func (a *FundingArbAction) execute(ctx context.Context, msg Message) *Result {
	notional := a.notionalUSD
	if v, ok := parseAmount(msg, "notional_usd"); ok && v > 0 {
		notional = v
	}

	opps, err := a.engine.Scan(ctx, a.symbols, notional)
	if err != nil {
		return errorResult("funding scan failed: %v", err)
	}
	if len(opps) == 0 {
		return errorResult("no opportunity to execute: nothing above the spread cutoff.")
	}

	pos, err := a.engine.Execute(ctx, opps[0], notional)
	if err != nil {
		return errorResult("couldn't open the hedge leg: %v", err)
	}
	return &Result{
		Text: fmt.Sprintf("Opened hedge leg for %s (position %s, $%s notional). Manual step: %s",
			pos.Opportunity.Symbol, pos.ID, formatAmount(notional), pos.ManualLeg),
		Content: map[string]any{"position": pos},
	}
}

func (a *FundingArbAction) close(ctx context.Context, msg Message) *Result {
	id, ok := parsePositionID(msg, "position_id")
	if !ok {
		return errorResult("I need the position id to close, e.g. \"close funding position ETH_1724980000000\".")
	}
	if err := a.engine.Close(ctx, id); err != nil {
		return errorResult("couldn't close %s: %v", id, err)
	}
	return textResult("Closed the hedge leg of %s. Remember to close the matching CEX leg.", id)
}

func (a *FundingArbAction) status(ctx context.Context) *Result {
	closed := a.engine.UpdatePnL(ctx)
	positions := a.engine.Positions()
	if len(positions) == 0 {
		return textResult("No funding-arb positions tracked.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d funding-arb positions:\n", len(positions))
	for _, pos := range positions {
		fmt.Fprintf(&b, "- %s: %s, $%s notional, est. funding PnL $%.2f\n",
			pos.ID, pos.Status, formatAmount(pos.NotionalUSD), pos.FundingPnL)
	}
	if len(closed) > 0 {
		fmt.Fprintf(&b, "Auto-closed: %s\n", strings.Join(closed, ", "))
	}
	return &Result{Text: b.String(), Content: map[string]any{"positions": positions, "auto_closed": closed}}
}
