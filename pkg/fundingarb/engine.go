package fundingarb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"seidefi/pkg/oracle"
	"seidefi/pkg/perp"
)

const (
	// minSpread is the absolute funding spread below which an opportunity is
	// discarded as noise (0.0001 == 1bp per 8h interval).
	minSpread = 0.0001

	// Spread cutoffs for the inverted risk buckets.
	lowRiskSpread    = 0.001
	mediumRiskSpread = 0.0005

	// Funding applies three times daily.
	fundingsPerYear = 3 * 365

	maxPositionAge = 7 * 24 * time.Hour
	// Fraction of the annualized target at which a position auto-closes.
	profitTakeFraction = 0.1
)

// exchangeTrust scores how much a venue's published funding rate is trusted.
var exchangeTrust = map[string]float64{
	"binance": 1.0,
	"bybit":   0.9,
	"okx":     0.85,
	"woox":    0.6,
}

const defaultTrust = 0.7

// FundingFeed supplies funding rates per symbol; the oracle satisfies it.
type FundingFeed interface {
	GetFundingRates(ctx context.Context, symbol string) ([]oracle.FundingRate, error)
}

// SpotTrader executes the DEX spot side of a hedge; pkg/dex satisfies it.
type SpotTrader interface {
	BuySpot(ctx context.Context, symbol string, usdAmount float64) (string, error)
	SellSpot(ctx context.Context, symbol string, usdAmount float64) (string, error)
}

// Engine owns the in-memory position map and runs scan/execute/close.
type Engine struct {
	mu        sync.Mutex
	positions map[string]*Position

	feed  FundingFeed
	spot  SpotTrader
	perps perp.Provider
	nowFn func() time.Time
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithClock injects a clock. Test hook.
func WithClock(nowFn func() time.Time) EngineOption {
	return func(e *Engine) {
		if nowFn != nil {
			e.nowFn = nowFn
		}
	}
}

// NewEngine constructs an engine over a funding feed and the two hedge-leg
// executors. Either executor may be nil; execution then fails for the
// corresponding hedge side.
func NewEngine(feed FundingFeed, spot SpotTrader, perps perp.Provider, opts ...EngineOption) *Engine {
	e := &Engine{
		positions: make(map[string]*Position),
		feed:      feed,
		spot:      spot,
		perps:     perps,
		nowFn:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func trust(exchange string) float64 {
	if v, ok := exchangeTrust[exchange]; ok {
		return v
	}
	return defaultTrust
}

func classifySpread(spread float64) Risk {
	switch {
	case spread > lowRiskSpread:
		return RiskLow
	case spread > mediumRiskSpread:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// annualProfit computes spread * notional * 3 * 365 with decimal math so
// basis-point spreads survive the multiplication exactly.
func annualProfit(spread, notional float64) float64 {
	return decimal.NewFromFloat(spread).
		Mul(decimal.NewFromFloat(notional)).
		Mul(decimal.NewFromInt(fundingsPerYear)).
		InexactFloat64()
}

// Scan fetches funding rates for each symbol, builds pairwise spreads and
// returns opportunities sorted by expected annual profit, best first.
// notionalUSD sizes the profit estimate.
func (e *Engine) Scan(ctx context.Context, symbols []string, notionalUSD float64) ([]Opportunity, error) {
	if notionalUSD <= 0 {
		return nil, fmt.Errorf("fundingarb: notional must be positive, got %v", notionalUSD)
	}
	var out []Opportunity
	for _, symbol := range symbols {
		rates, err := e.feed.GetFundingRates(ctx, symbol)
		if err != nil {
			logx.WithContext(ctx).Infof("fundingarb: no funding data for %s, skipping: %v", symbol, err)
			continue
		}
		out = append(out, pairwiseOpportunities(symbol, rates, notionalUSD, e.nowFn())...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AnnualProfit > out[j].AnnualProfit })
	return out, nil
}

func pairwiseOpportunities(symbol string, rates []oracle.FundingRate, notionalUSD float64, now time.Time) []Opportunity {
	var out []Opportunity
	for i := 0; i < len(rates); i++ {
		for j := i + 1; j < len(rates); j++ {
			a, b := rates[i], rates[j]
			spread := math.Abs(a.Rate - b.Rate)
			if spread < minSpread {
				continue
			}
			long, short := a, b
			if a.Rate > b.Rate {
				long, short = b, a
			}
			hedgeSide := HedgeLongSpot
			if short.Rate <= 0 {
				// Funding is negative everywhere: the collecting leg is a
				// long, so the hedge is a perp short.
				hedgeSide = HedgeShortPerp
			}
			out = append(out, Opportunity{
				Symbol:        symbol,
				LongExchange:  long.Exchange,
				ShortExchange: short.Exchange,
				LongRate:      long.Rate,
				ShortRate:     short.Rate,
				Spread:        spread,
				AnnualProfit:  annualProfit(spread, notionalUSD),
				Confidence:    math.Min(1, trust(long.Exchange)*trust(short.Exchange)),
				Risk:          classifySpread(spread),
				HedgeSide:     hedgeSide,
				DetectedAt:    now,
			})
		}
	}
	return out
}

// Execute opens the hedge leg for an opportunity and records the position.
// The matching CEX funding leg is never automated: the returned position's
// ManualLeg tells the operator what to open.
func (e *Engine) Execute(ctx context.Context, opp Opportunity, notionalUSD float64) (*Position, error) {
	if notionalUSD <= 0 {
		return nil, fmt.Errorf("fundingarb: notional must be positive, got %v", notionalUSD)
	}

	var txRef string
	var err error
	switch opp.HedgeSide {
	case HedgeLongSpot:
		if e.spot == nil {
			return nil, fmt.Errorf("fundingarb: no spot trader configured for %s hedge", opp.Symbol)
		}
		txRef, err = e.spot.BuySpot(ctx, opp.Symbol, notionalUSD)
	case HedgeShortPerp:
		if e.perps == nil {
			return nil, fmt.Errorf("fundingarb: no perp provider configured for %s hedge", opp.Symbol)
		}
		txRef, err = e.perps.OpenPosition(ctx, perp.OpenParams{
			Symbol:  opp.Symbol,
			Side:    perp.SideShort,
			SizeUSD: notionalUSD,
		})
	default:
		return nil, fmt.Errorf("fundingarb: unknown hedge side %q", opp.HedgeSide)
	}
	if err != nil {
		return nil, fmt.Errorf("fundingarb: open hedge leg for %s: %w", opp.Symbol, err)
	}

	now := e.nowFn()
	pos := &Position{
		ID:          fmt.Sprintf("%s_%d", opp.Symbol, now.UnixMilli()),
		Opportunity: opp,
		NotionalUSD: notionalUSD,
		TxRef:       txRef,
		ManualLeg:   manualLeg(opp),
		Status:      StatusActive,
		OpenedAt:    now,
		UpdatedAt:   now,
	}
	e.mu.Lock()
	e.positions[pos.ID] = pos
	e.mu.Unlock()
	return pos, nil
}

func manualLeg(opp Opportunity) string {
	if opp.HedgeSide == HedgeLongSpot {
		return fmt.Sprintf("open SHORT %s perp on %s to collect %.4f%% funding", opp.Symbol, opp.ShortExchange, opp.ShortRate*100)
	}
	return fmt.Sprintf("open LONG %s perp on %s to collect %.4f%% funding", opp.Symbol, opp.LongExchange, -opp.LongRate*100)
}

// Close reverses the hedge leg of a position and marks it closed.
func (e *Engine) Close(ctx context.Context, id string) error {
	e.mu.Lock()
	pos, ok := e.positions[id]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("fundingarb: unknown position %s", id)
	}
	if pos.Status == StatusClosed {
		e.mu.Unlock()
		return fmt.Errorf("fundingarb: position %s already closed", id)
	}
	pos.Status = StatusClosing
	e.mu.Unlock()

	var err error
	switch pos.Opportunity.HedgeSide {
	case HedgeLongSpot:
		_, err = e.spot.SellSpot(ctx, pos.Opportunity.Symbol, pos.NotionalUSD)
	case HedgeShortPerp:
		_, err = e.perps.ClosePosition(ctx, pos.Opportunity.Symbol, pos.NotionalUSD)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		pos.Status = StatusActive
		return fmt.Errorf("fundingarb: close hedge leg for %s: %w", id, err)
	}
	pos.Status = StatusClosed
	pos.UpdatedAt = e.nowFn()
	return nil
}

// UpdatePnL recomputes the linear funding-accrual estimate for every active
// position and auto-closes any that aged past seven days or realized a tenth
// of the annualized target. It returns the ids it closed.
func (e *Engine) UpdatePnL(ctx context.Context) []string {
	e.mu.Lock()
	var due []string
	now := e.nowFn()
	for id, pos := range e.positions {
		if pos.Status != StatusActive {
			continue
		}
		age := now.Sub(pos.OpenedAt)
		days := age.Hours() / 24
		pos.FundingPnL = decimal.NewFromFloat(pos.Opportunity.Spread).
			Mul(decimal.NewFromFloat(pos.NotionalUSD)).
			Mul(decimal.NewFromInt(3)).
			Mul(decimal.NewFromFloat(days)).
			InexactFloat64()
		pos.UpdatedAt = now

		target := annualProfit(pos.Opportunity.Spread, pos.NotionalUSD)
		if age >= maxPositionAge || (target > 0 && pos.FundingPnL >= target*profitTakeFraction) {
			due = append(due, id)
		}
	}
	e.mu.Unlock()

	var closed []string
	for _, id := range due {
		if err := e.Close(ctx, id); err != nil {
			logx.WithContext(ctx).Errorf("fundingarb: auto-close %s failed: %v", id, err)
			continue
		}
		closed = append(closed, id)
	}
	return closed
}

// Positions returns a snapshot of all tracked positions, newest first.
func (e *Engine) Positions() []Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Position, 0, len(e.positions))
	for _, pos := range e.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out
}

// Position returns a snapshot of one position by id.
func (e *Engine) Position(id string) (Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, ok := e.positions[id]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}
