// Package oracle aggregates spot prices and perp funding rates from multiple
// upstream feeds with a configured fallback order, a time-bounded cache and a
// per-source circuit breaker.
package oracle

import (
	"context"
	"errors"
	"time"
)

// ErrNoPrice indicates every configured source failed to produce a quote.
var ErrNoPrice = errors.New("oracle: no source produced a price")

// ErrNoFunding indicates no funding source produced a rate for the symbol.
var ErrNoFunding = errors.New("oracle: no funding rates available")

// Quote is a spot price observation.
type Quote struct {
	Symbol     string
	Price      float64
	Timestamp  time.Time
	Source     string
	Confidence float64 // 0..1, source-reported or source trust score
}

// FundingRate is one funding observation from a derivatives venue.
type FundingRate struct {
	Exchange    string
	Symbol      string
	Rate        float64 // per funding interval, decimal (0.0001 == 1bp)
	NextFunding time.Time
	Timestamp   time.Time
}

// Source supplies spot prices for symbols.
type Source interface {
	Name() string
	GetPrice(ctx context.Context, symbol string) (*Quote, error)
}

// FundingSource supplies perp funding rates for symbols.
type FundingSource interface {
	Name() string
	GetFundingRate(ctx context.Context, symbol string) (*FundingRate, error)
}
