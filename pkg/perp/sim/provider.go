// Package sim is a paper-trading perp provider that keeps positions in
// memory. It backs tests and dry-run mode; fills are instant at the current
// mark price.
package sim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"seidefi/pkg/perp"
)

func init() {
	perp.RegisterProvider("sim", func(name string, cfg *perp.ProviderConfig) (perp.Provider, error) {
		return New(), nil
	})
}

// Provider is an in-memory perp venue.
type Provider struct {
	mu        sync.Mutex
	positions map[string]*perp.Position
	markPx    map[string]float64
	seq       int
	failNext  error
}

// New constructs an empty simulator.
func New() *Provider {
	return &Provider{
		positions: make(map[string]*perp.Position),
		markPx:    make(map[string]float64),
	}
}

func canonical(symbol string) string { return strings.ToUpper(strings.TrimSpace(symbol)) }

// Name identifies the provider for routing and logs.
func (p *Provider) Name() string { return "sim" }

// SetMarkPrice updates the reference price used for entries and PnL.
func (p *Provider) SetMarkPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markPx[canonical(symbol)] = price
}

// FailNext makes the next trading call return err once. Test hook.
func (p *Provider) FailNext(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = err
}

func (p *Provider) takeFailure() error {
	err := p.failNext
	p.failNext = nil
	return err
}

// OpenPosition records a position filled at the mark price.
func (p *Provider) OpenPosition(_ context.Context, params perp.OpenParams) (string, error) {
	if params.SizeUSD <= 0 {
		return "", fmt.Errorf("sim: position size must be positive, got %v", params.SizeUSD)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure(); err != nil {
		return "", err
	}

	sym := canonical(params.Symbol)
	mark := p.markPx[sym]
	if mark <= 0 {
		mark = 100 // fallback mark for symbols never priced
	}
	leverage := params.Leverage
	if leverage <= 0 {
		leverage = 1
	}
	if existing, ok := p.positions[sym]; ok && existing.Side == params.Side {
		existing.SizeUSD += params.SizeUSD
	} else {
		p.positions[sym] = &perp.Position{
			Symbol:     sym,
			Side:       params.Side,
			SizeUSD:    params.SizeUSD,
			EntryPrice: mark,
			Leverage:   leverage,
		}
	}
	p.seq++
	return fmt.Sprintf("sim-%d-%d", time.Now().UnixMilli(), p.seq), nil
}

// ClosePosition removes or reduces the tracked position.
func (p *Provider) ClosePosition(_ context.Context, symbol string, sizeUSD float64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure(); err != nil {
		return "", err
	}

	sym := canonical(symbol)
	pos, ok := p.positions[sym]
	if !ok {
		return "", fmt.Errorf("sim: no open position for %s", sym)
	}
	if sizeUSD <= 0 || sizeUSD >= pos.SizeUSD {
		delete(p.positions, sym)
	} else {
		pos.SizeUSD -= sizeUSD
	}
	p.seq++
	return fmt.Sprintf("sim-close-%d-%d", time.Now().UnixMilli(), p.seq), nil
}

// GetPositions lists open positions with mark-to-market PnL.
func (p *Provider) GetPositions(_ context.Context) ([]perp.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]perp.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		copied := *pos
		if mark := p.markPx[pos.Symbol]; mark > 0 && pos.EntryPrice > 0 {
			move := (mark - pos.EntryPrice) / pos.EntryPrice
			if pos.Side == perp.SideShort {
				move = -move
			}
			copied.UnrealizedPnL = move * pos.SizeUSD
		}
		out = append(out, copied)
	}
	return out, nil
}

// GetHedgeRecommendation mirrors the regulated provider's shape so the sim
// can stand in for it during router tests.
func (p *Provider) GetHedgeRecommendation(_ context.Context, lp perp.LPView) (*perp.HedgeRecommendation, error) {
	if lp.ValueUSD <= 0 {
		return nil, fmt.Errorf("sim: lp value must be positive, got %v", lp.ValueUSD)
	}
	ratio := lp.Ratio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.5
	}
	return &perp.HedgeRecommendation{
		Symbol:         lp.Base,
		Side:           perp.SideShort,
		SizeUSD:        lp.ValueUSD * ratio,
		ILReductionPct: ratio * 80,
	}, nil
}
