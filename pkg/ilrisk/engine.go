// Package ilrisk estimates impermanent-loss exposure for LP positions,
// classifies it into discrete risk levels and selects a protection strategy.
// Hedge execution is delegated to an injected dispatcher; the engine itself
// is stateless beyond its lookup tables.
package ilrisk

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

// RiskLevel buckets projected IL exposure.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// StrategyKind names the selected protection approach.
type StrategyKind string

const (
	// StrategyRebalanceOnly keeps the position and relies on range upkeep.
	StrategyRebalanceOnly StrategyKind = "rebalance_only"
	// StrategyPerpHedge opens an offsetting perp position sized by HedgeRatio.
	StrategyPerpHedge StrategyKind = "perp_hedge"
)

// Preference is an explicit user override for strategy selection.
type Preference string

const (
	PreferenceAuto         Preference = "auto"
	PreferenceConservative Preference = "conservative"
	PreferenceAggressive   Preference = "aggressive"
)

// LPPosition describes a liquidity position under assessment.
type LPPosition struct {
	Pair     string // e.g. "ETH/USDC"
	Token0   string
	Token1   string
	ValueUSD float64
}

// Metrics is the computed risk view of a position. Produced fresh per
// request, never stored.
type Metrics struct {
	Volatility     float64
	Correlation    float64
	TimeInPosition time.Duration
	CurrentIL      float64 // percent
	ProjectedIL    float64 // percent
	Level          RiskLevel
}

// Strategy is the selected protection plan.
type Strategy struct {
	Kind       StrategyKind
	Level      RiskLevel
	HedgeRatio float64 // fraction of position value to hedge, only for perp_hedge
	Reason     string
}

// HedgeOrder is handed to the dispatcher when a perp hedge is selected.
type HedgeOrder struct {
	Pair     string
	ValueUSD float64
	Ratio    float64
}

// Dispatcher executes a hedge order. The geographic router satisfies this
// through a thin adapter.
type Dispatcher interface {
	DispatchHedge(ctx context.Context, order HedgeOrder) error
}

const (
	defaultVolatility    = 0.8
	holdingPeriod        = 24 * time.Hour
	hedgeEffectiveness   = 0.8 // assumed fraction of IL removed by a full hedge
	maxHedgeRatio        = 0.9
	volatilityRatioBoost = 0.2
)

// volatilityTable maps base assets to rough annualised volatility estimates.
// Unknown assets fall back to defaultVolatility.
var volatilityTable = map[string]float64{
	"BTC":  0.55,
	"ETH":  0.65,
	"SEI":  1.2,
	"SOL":  0.9,
	"ATOM": 0.85,
	"USDC": 0.05,
	"USDT": 0.05,
	"DAI":  0.06,
}

var stablecoins = map[string]bool{"USDC": true, "USDT": true, "DAI": true}

var majors = map[string]bool{"BTC": true, "ETH": true}

// Engine computes IL metrics and drives protection decisions.
type Engine struct {
	dispatcher Dispatcher
}

// NewEngine constructs an engine. A nil dispatcher disables the perp-hedge
// execution path (strategy selection still works).
func NewEngine(dispatcher Dispatcher) *Engine {
	return &Engine{dispatcher: dispatcher}
}

func lookupVolatility(token string) float64 {
	if v, ok := volatilityTable[strings.ToUpper(token)]; ok {
		return v
	}
	return defaultVolatility
}

func pairCorrelation(t0, t1 string) float64 {
	a, b := strings.ToUpper(t0), strings.ToUpper(t1)
	switch {
	case stablecoins[a] && stablecoins[b]:
		return 0.1
	case majors[a] && majors[b]:
		return 0.7
	default:
		return 0.4
	}
}

// Assess computes risk metrics for a position. Pair volatility is taken from
// the more volatile leg; the IL figures are a rough linear proxy, not a
// market-calibrated model.
func (e *Engine) Assess(pos LPPosition) Metrics {
	vol := math.Max(lookupVolatility(pos.Token0), lookupVolatility(pos.Token1))
	corr := pairCorrelation(pos.Token0, pos.Token1)

	hours := holdingPeriod.Hours()
	current := vol * 10
	projected := current * (1 + vol*math.Sqrt(hours/24))

	m := Metrics{
		Volatility:     vol,
		Correlation:    corr,
		TimeInPosition: holdingPeriod,
		CurrentIL:      current,
		ProjectedIL:    projected,
	}
	m.Level = classify(m)
	return m
}

func classify(m Metrics) RiskLevel {
	switch {
	case m.ProjectedIL < 5 && m.Volatility < 0.3:
		return RiskLow
	case m.ProjectedIL < 10 && m.Volatility < 0.6:
		return RiskMedium
	case m.ProjectedIL < 20 && m.Volatility < 1.0:
		return RiskHigh
	default:
		return RiskCritical
	}
}

var baseHedgeRatio = map[RiskLevel]float64{
	RiskLow:      0.1,
	RiskMedium:   0.4,
	RiskHigh:     0.6,
	RiskCritical: 0.8,
}

func hedgeRatio(level RiskLevel, volatility float64) float64 {
	boost := math.Min(volatilityRatioBoost, volatility*volatilityRatioBoost)
	return math.Min(maxHedgeRatio, baseHedgeRatio[level]+boost)
}

// SelectStrategy maps metrics and an optional user preference to a
// protection strategy. Low risk always resolves to rebalance-only; explicit
// preferences override the medium-risk volatility branch.
func (e *Engine) SelectStrategy(m Metrics, pref Preference) Strategy {
	if m.Level == RiskLow {
		return Strategy{Kind: StrategyRebalanceOnly, Level: m.Level, Reason: "projected IL within tolerance"}
	}
	switch pref {
	case PreferenceConservative:
		return Strategy{Kind: StrategyRebalanceOnly, Level: m.Level, Reason: "conservative preference"}
	case PreferenceAggressive:
		return perpHedge(m, "aggressive preference")
	}
	switch m.Level {
	case RiskMedium:
		if m.Volatility > 0.5 {
			return perpHedge(m, "medium risk with elevated volatility")
		}
		return Strategy{Kind: StrategyRebalanceOnly, Level: m.Level, Reason: "medium risk, moderate volatility"}
	default: // high, critical
		return perpHedge(m, "high projected IL")
	}
}

func perpHedge(m Metrics, reason string) Strategy {
	return Strategy{
		Kind:       StrategyPerpHedge,
		Level:      m.Level,
		HedgeRatio: hedgeRatio(m.Level, m.Volatility),
		Reason:     reason,
	}
}

// Protect runs the full assess → select → dispatch flow. A failed hedge
// dispatch degrades to rebalance-only instead of surfacing an error, so the
// caller always receives an actionable strategy.
func (e *Engine) Protect(ctx context.Context, pos LPPosition, pref Preference) (Metrics, Strategy) {
	m := e.Assess(pos)
	s := e.SelectStrategy(m, pref)
	if s.Kind != StrategyPerpHedge {
		return m, s
	}
	if e.dispatcher == nil {
		logx.WithContext(ctx).Infof("ilrisk: no hedge dispatcher configured, degrading %s to rebalance-only", pos.Pair)
		return m, Strategy{Kind: StrategyRebalanceOnly, Level: m.Level, Reason: "hedge execution unavailable"}
	}
	order := HedgeOrder{Pair: pos.Pair, ValueUSD: pos.ValueUSD, Ratio: s.HedgeRatio}
	if err := e.dispatcher.DispatchHedge(ctx, order); err != nil {
		logx.WithContext(ctx).Errorf("ilrisk: hedge dispatch for %s failed, degrading to rebalance-only: %v", pos.Pair, err)
		return m, Strategy{Kind: StrategyRebalanceOnly, Level: m.Level, Reason: "hedge dispatch failed"}
	}
	return m, s
}
