// Package fundingarb detects cross-exchange funding-rate spreads, ranks them
// into opportunities and runs the one-sided hedge-leg execution protocol:
// the bot opens only the hedge leg (DEX spot buy or perp short) and records a
// position; the funding-collecting CEX leg is left to the operator.
package fundingarb

import (
	"time"
)

// Risk buckets opportunities by spread magnitude. Naming is inverted
// relative to IL risk: a wider spread is lower risk because it is more
// likely genuine and profitable after costs.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// HedgeSide is the direction of the locally-executed hedge leg.
type HedgeSide string

const (
	// HedgeLongSpot buys spot on the DEX to offset a short funding leg.
	HedgeLongSpot HedgeSide = "long_spot"
	// HedgeShortPerp shorts a perp to offset a long funding leg.
	HedgeShortPerp HedgeSide = "short_perp"
)

// Status tracks the lifecycle of an executed position.
type Status string

const (
	StatusActive  Status = "active"
	StatusClosing Status = "closing"
	StatusClosed  Status = "closed"
)

// Opportunity is a detected funding-rate spread between two venues.
type Opportunity struct {
	Symbol        string
	LongExchange  string // venue with the lower funding rate
	ShortExchange string // venue with the higher funding rate
	LongRate      float64
	ShortRate     float64
	Spread        float64 // shortRate - longRate, always positive
	AnnualProfit  float64 // expected profit per configured notional
	Confidence    float64 // product of per-venue trust scores, capped at 1
	Risk          Risk
	HedgeSide     HedgeSide
	DetectedAt    time.Time
}

// Position is an executed, locally-tracked arbitrage position. Only the
// hedge leg is automated; ManualLeg describes what the operator must open.
type Position struct {
	ID          string // symbol_unixmillis
	Opportunity Opportunity
	NotionalUSD float64
	TxRef       string
	ManualLeg   string
	Status      Status
	OpenedAt    time.Time
	FundingPnL  float64
	UpdatedAt   time.Time
}
