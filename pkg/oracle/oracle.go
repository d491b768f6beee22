package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/zeromicro/go-zero/core/logx"
)

const (
	defaultPriceTTL    = 10 * time.Second
	defaultFundingTTL  = time.Minute
	defaultRetryPause  = 200 * time.Millisecond
	breakerMaxRequests = 1
	breakerInterval    = 30 * time.Second
	breakerTimeout     = 15 * time.Second
	breakerMinRequests = 5
)

// Oracle queries its price sources in fallback order and its funding sources
// in parallel-tolerant sequence, caching results per symbol.
type Oracle struct {
	sources        []Source
	fundingSources []FundingSource

	priceCache   *ttlCache[*Quote]
	fundingCache *ttlCache[[]FundingRate]

	breakers   map[string]*gobreaker.CircuitBreaker
	retryPause time.Duration
	nowFn      func() time.Time
}

// Option customises an Oracle.
type Option func(*opts)

type opts struct {
	priceTTL   time.Duration
	fundingTTL time.Duration
	retryPause time.Duration
	nowFn      func() time.Time
}

// WithPriceTTL sets the spot price cache TTL. Zero disables caching.
func WithPriceTTL(ttl time.Duration) Option {
	return func(o *opts) { o.priceTTL = ttl }
}

// WithFundingTTL sets the funding-rate cache TTL. Zero disables caching.
func WithFundingTTL(ttl time.Duration) Option {
	return func(o *opts) { o.fundingTTL = ttl }
}

// WithRetryPause sets the pause before the single retry of a failed read.
func WithRetryPause(d time.Duration) Option {
	return func(o *opts) { o.retryPause = d }
}

// WithClock injects a clock. Test hook.
func WithClock(nowFn func() time.Time) Option {
	return func(o *opts) {
		if nowFn != nil {
			o.nowFn = nowFn
		}
	}
}

// New constructs an Oracle over the given price sources (tried in order) and
// funding sources (all queried, partial results tolerated).
func New(sources []Source, fundingSources []FundingSource, options ...Option) *Oracle {
	o := opts{
		priceTTL:   defaultPriceTTL,
		fundingTTL: defaultFundingTTL,
		retryPause: defaultRetryPause,
		nowFn:      time.Now,
	}
	for _, opt := range options {
		opt(&o)
	}

	breakers := make(map[string]*gobreaker.CircuitBreaker, len(sources)+len(fundingSources))
	for _, s := range sources {
		breakers[s.Name()] = newBreaker(s.Name())
	}
	for _, s := range fundingSources {
		if _, ok := breakers[s.Name()]; !ok {
			breakers[s.Name()] = newBreaker(s.Name())
		}
	}

	return &Oracle{
		sources:        sources,
		fundingSources: fundingSources,
		priceCache:     newTTLCache[*Quote](o.priceTTL, o.nowFn),
		fundingCache:   newTTLCache[[]FundingRate](o.fundingTTL, o.nowFn),
		breakers:       breakers,
		retryPause:     o.retryPause,
		nowFn:          o.nowFn,
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= breakerMinRequests &&
				counts.TotalFailures*2 >= counts.Requests
		},
	})
}

// GetPrice returns the first successful quote walking the fallback order.
// Each source gets one retry; sources behind an open breaker are skipped.
func (o *Oracle) GetPrice(ctx context.Context, symbol string) (*Quote, error) {
	if quote, ok := o.priceCache.get(symbol); ok {
		return quote, nil
	}

	var lastErr error
	for _, source := range o.sources {
		quote, err := o.fetchPrice(ctx, source, symbol)
		if err != nil {
			lastErr = err
			logx.WithContext(ctx).Infof("oracle: source %s failed for %s, trying next: %v", source.Name(), symbol, err)
			continue
		}
		o.priceCache.set(symbol, quote)
		return quote, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %s: last error: %v", ErrNoPrice, symbol, lastErr)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoPrice, symbol)
}

func (o *Oracle) fetchPrice(ctx context.Context, source Source, symbol string) (*Quote, error) {
	fetch := func() (*Quote, error) {
		result, err := o.breakers[source.Name()].Execute(func() (interface{}, error) {
			return source.GetPrice(ctx, symbol)
		})
		if err != nil {
			return nil, err
		}
		quote, _ := result.(*Quote)
		if quote == nil || quote.Price <= 0 {
			return nil, fmt.Errorf("oracle: source %s returned empty quote for %s", source.Name(), symbol)
		}
		return quote, nil
	}

	quote, err := fetch()
	if err == nil {
		return quote, nil
	}
	// Idempotent read: a single bounded retry, skipped when the breaker is open.
	if err == gobreaker.ErrOpenState || ctx.Err() != nil {
		return nil, err
	}
	select {
	case <-time.After(o.retryPause):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return fetch()
}

// GetFundingRates aggregates funding rates for symbol across all configured
// funding sources. Individual source failures are logged and tolerated; the
// call errors only when nothing at all was produced.
func (o *Oracle) GetFundingRates(ctx context.Context, symbol string) ([]FundingRate, error) {
	if rates, ok := o.fundingCache.get(symbol); ok {
		return rates, nil
	}

	var rates []FundingRate
	for _, source := range o.fundingSources {
		result, err := o.breakers[source.Name()].Execute(func() (interface{}, error) {
			return source.GetFundingRate(ctx, symbol)
		})
		if err != nil {
			logx.WithContext(ctx).Infof("oracle: funding source %s failed for %s: %v", source.Name(), symbol, err)
			continue
		}
		if rate, ok := result.(*FundingRate); ok && rate != nil {
			rates = append(rates, *rate)
		}
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFunding, symbol)
	}
	o.fundingCache.set(symbol, rates)
	return rates, nil
}

// Invalidate drops cached data for symbol.
func (o *Oracle) Invalidate(symbol string) {
	o.priceCache.expire(symbol)
	o.fundingCache.expire(symbol)
}
