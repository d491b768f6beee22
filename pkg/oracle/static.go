package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StaticSource serves fixed prices and funding rates from memory. It backs
// tests and dry-run wiring when no live feed is configured.
type StaticSource struct {
	mu      sync.Mutex
	name    string
	prices  map[string]float64
	funding map[string]float64
	err     error
	calls   int
}

// NewStaticSource builds an empty static source.
func NewStaticSource(name string) *StaticSource {
	return &StaticSource{
		name:    name,
		prices:  make(map[string]float64),
		funding: make(map[string]float64),
	}
}

// Name identifies the source.
func (s *StaticSource) Name() string { return s.name }

// SetPrice fixes the spot price for symbol.
func (s *StaticSource) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// SetFunding fixes the funding rate for symbol.
func (s *StaticSource) SetFunding(symbol string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funding[symbol] = rate
}

// SetError makes every call fail with err until cleared with nil.
func (s *StaticSource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls reports how many reads this source served or failed. Test hook.
func (s *StaticSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// GetPrice implements Source.
func (s *StaticSource) GetPrice(_ context.Context, symbol string) (*Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	price, ok := s.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("static %s: no price for %s", s.name, symbol)
	}
	return &Quote{
		Symbol:     symbol,
		Price:      price,
		Timestamp:  time.Now(),
		Source:     s.name,
		Confidence: 1,
	}, nil
}

// GetFundingRate implements FundingSource.
func (s *StaticSource) GetFundingRate(_ context.Context, symbol string) (*FundingRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	rate, ok := s.funding[symbol]
	if !ok {
		return nil, fmt.Errorf("static %s: no funding rate for %s", s.name, symbol)
	}
	return &FundingRate{
		Exchange:  s.name,
		Symbol:    symbol,
		Rate:      rate,
		Timestamp: time.Now(),
	}, nil
}
