// Package amm maintains concentrated-liquidity position bookkeeping for
// multiple symbols and decides when a position should rebalance or escape
// into a fallback hedge. It holds no exchange connectivity of its own; order
// placement and hedging are delegated to injected collaborators.
package amm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EscapeStatus is the status reported when the fallback hedge path engages.
const EscapeStatus = "options-hedge-activated"

// ErrUnknownSymbol indicates no position is tracked for the requested symbol.
var ErrUnknownSymbol = errors.New("amm: unknown symbol")

// Range bounds a concentrated-liquidity position.
type Range struct {
	Min float64
	Max float64
}

// Mid returns the midpoint of the range.
func (r Range) Mid() float64 { return (r.Min + r.Max) / 2 }

// Analytics accumulates per-position bookkeeping counters. Rebalances only
// ever increases for the lifetime of a position.
type Analytics struct {
	Fees       float64
	Slippage   float64
	Rebalances int
}

// Position tracks a single symbol's liquidity placement.
type Position struct {
	Range     Range
	Size      float64
	Analytics Analytics
}

// OrderPlacer submits range orders to the trading venue.
type OrderPlacer interface {
	PlaceRangeOrder(ctx context.Context, symbol string, r Range, size float64) error
}

// Hooks receive notifications on position lifecycle events. Nil fields are skipped.
type Hooks struct {
	OnRebalance func(symbol string)
	OnFallback  func(symbol string)
}

// Manager owns the symbol → position map. All methods are safe for
// concurrent use; hooks fire outside the internal lock so they may call back
// into the manager.
type Manager struct {
	mu        sync.Mutex
	positions map[string]*Position
	placer    OrderPlacer
	hooks     Hooks
}

// Option customises a Manager.
type Option func(*Manager)

// WithOrderPlacer injects the range-order collaborator.
func WithOrderPlacer(p OrderPlacer) Option {
	return func(m *Manager) { m.placer = p }
}

// WithHooks installs lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(m *Manager) { m.hooks = h }
}

// NewManager constructs an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{positions: make(map[string]*Position)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InitPosition creates a position for symbol with zeroed analytics.
// Re-initialising an existing symbol overwrites it entirely; there are no
// merge semantics.
func (m *Manager) InitPosition(symbol string, min, max, size float64) error {
	if symbol == "" {
		return errors.New("amm: symbol is required")
	}
	if !(min < max) {
		return fmt.Errorf("amm: invalid range [%v, %v] for %s: min must be below max", min, max, symbol)
	}
	if size <= 0 {
		return fmt.Errorf("amm: position size must be positive, got %v", size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[symbol] = &Position{
		Range: Range{Min: min, Max: max},
		Size:  size,
	}
	return nil
}

// deviation measures how far price sits outside the range, relative to the
// violated bound. A price inside the range deviates by zero, so in-range
// positions never trigger a rebalance.
func deviation(price float64, r Range) float64 {
	switch {
	case price > r.Max:
		return (price - r.Max) / r.Max
	case price < r.Min:
		return (r.Min - price) / r.Min
	default:
		return 0
	}
}

// Rebalance checks price against the position's range and, when the
// deviation exceeds threshold, accrues feeDelta/slipDelta, bumps the
// rebalance counter and fires OnRebalance. Within threshold it is a strict
// no-op. The range itself is never recomputed here; use SetDynamicRange.
// The boolean reports whether a rebalance was recorded.
func (m *Manager) Rebalance(symbol string, price, feeDelta, slipDelta, threshold float64) (bool, error) {
	if price <= 0 {
		return false, fmt.Errorf("amm: price must be positive, got %v", price)
	}
	m.mu.Lock()
	pos, ok := m.positions[symbol]
	if !ok {
		m.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if deviation(price, pos.Range) <= threshold {
		m.mu.Unlock()
		return false, nil
	}
	pos.Analytics.Fees += feeDelta
	pos.Analytics.Slippage += slipDelta
	pos.Analytics.Rebalances++
	hook := m.hooks.OnRebalance
	m.mu.Unlock()

	if hook != nil {
		hook(symbol)
	}
	return true, nil
}

// RebalanceAll applies Rebalance to every tracked symbol with an entry in
// prices. Symbols missing from prices are skipped. The result maps each
// considered symbol to whether it rebalanced.
func (m *Manager) RebalanceAll(prices map[string]float64, feeDelta, slipDelta, threshold float64) (map[string]bool, error) {
	m.mu.Lock()
	symbols := make([]string, 0, len(m.positions))
	for s := range m.positions {
		if _, ok := prices[s]; ok {
			symbols = append(symbols, s)
		}
	}
	m.mu.Unlock()

	out := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		rebalanced, err := m.Rebalance(s, prices[s], feeDelta, slipDelta, threshold)
		if err != nil {
			return out, err
		}
		out[s] = rebalanced
	}
	return out, nil
}

// SetDynamicRange recentres the position's range around price with the given
// half-width fraction and returns the new range. It does not touch the
// rebalance counter.
func (m *Manager) SetDynamicRange(symbol string, price, width float64) (Range, error) {
	if price <= 0 {
		return Range{}, fmt.Errorf("amm: price must be positive, got %v", price)
	}
	if width <= 0 || width >= 1 {
		return Range{}, fmt.Errorf("amm: width fraction must be in (0, 1), got %v", width)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[symbol]
	if !ok {
		return Range{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	pos.Range = Range{Min: price * (1 - width), Max: price * (1 + width)}
	return pos.Range, nil
}

// PlaceRangeOrder forwards the position's current range and size to the
// injected order placer. Placement errors propagate unchanged.
func (m *Manager) PlaceRangeOrder(ctx context.Context, symbol string) error {
	m.mu.Lock()
	pos, ok := m.positions[symbol]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	r, size := pos.Range, pos.Size
	placer := m.placer
	m.mu.Unlock()

	if placer == nil {
		return errors.New("amm: no order placer configured")
	}
	return placer.PlaceRangeOrder(ctx, symbol, r, size)
}

// HandleEscape engages the fallback hedge path for a position whose price has
// left the tolerable band. It fires OnFallback and reports EscapeStatus; the
// hedge trade itself is the hook consumer's responsibility.
func (m *Manager) HandleEscape(symbol string, price float64) (string, error) {
	m.mu.Lock()
	_, ok := m.positions[symbol]
	hook := m.hooks.OnFallback
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if hook != nil {
		hook(symbol)
	}
	return EscapeStatus, nil
}

// Analytics returns the accumulated counters for symbol.
func (m *Manager) Analytics(symbol string) (Analytics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[symbol]
	if !ok {
		return Analytics{}, false
	}
	return pos.Analytics, true
}

// Snapshot returns a copy of the position tracked for symbol.
func (m *Manager) Snapshot(symbol string) (Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Symbols lists all tracked symbols in unspecified order.
func (m *Manager) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.positions))
	for s := range m.positions {
		out = append(out, s)
	}
	return out
}
