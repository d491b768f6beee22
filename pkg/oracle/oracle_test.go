package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPrice_FallbackOrder(t *testing.T) {
	primary := NewStaticSource("pyth")
	secondary := NewStaticSource("dex")
	secondary.SetPrice("ETH", 2001)
	primary.SetError(errors.New("feed down"))

	o := New([]Source{primary, secondary}, nil, WithRetryPause(time.Millisecond))
	quote, err := o.GetPrice(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, 2001.0, quote.Price)
	assert.Equal(t, "dex", quote.Source, "second source should win when the first fails")
}

func TestGetPrice_RetriesFailedSourceOnce(t *testing.T) {
	src := NewStaticSource("pyth")
	src.SetError(errors.New("transient"))

	o := New([]Source{src}, nil, WithRetryPause(time.Millisecond))
	_, err := o.GetPrice(context.Background(), "ETH")
	assert.ErrorIs(t, err, ErrNoPrice)
	assert.Equal(t, 2, src.Calls(), "a failed read gets exactly one retry")
}

func TestGetPrice_CacheHit(t *testing.T) {
	src := NewStaticSource("pyth")
	src.SetPrice("ETH", 2000)

	now := time.Now()
	o := New([]Source{src}, nil, WithPriceTTL(10*time.Second), WithClock(func() time.Time { return now }))

	_, err := o.GetPrice(context.Background(), "ETH")
	require.NoError(t, err)
	_, err = o.GetPrice(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, 1, src.Calls(), "second read inside the TTL must hit the cache")

	// Advance past the TTL: the source is consulted again.
	now = now.Add(11 * time.Second)
	_, err = o.GetPrice(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, 2, src.Calls())
}

func TestGetPrice_Invalidate(t *testing.T) {
	src := NewStaticSource("pyth")
	src.SetPrice("SEI", 0.45)

	o := New([]Source{src}, nil)
	_, err := o.GetPrice(context.Background(), "SEI")
	require.NoError(t, err)

	o.Invalidate("SEI")
	_, err = o.GetPrice(context.Background(), "SEI")
	require.NoError(t, err)
	assert.Equal(t, 2, src.Calls(), "invalidate must force a fresh read")
}

func TestGetFundingRates_PartialTolerance(t *testing.T) {
	binance := NewStaticSource("binance")
	binance.SetFunding("ETH", 0.0001)
	bybit := NewStaticSource("bybit")
	bybit.SetError(errors.New("maintenance"))
	okx := NewStaticSource("okx")
	okx.SetFunding("ETH", 0.00025)

	o := New(nil, []FundingSource{binance, bybit, okx})
	rates, err := o.GetFundingRates(context.Background(), "ETH")
	require.NoError(t, err, "one healthy source is enough")
	require.Len(t, rates, 2)
	assert.Equal(t, "binance", rates[0].Exchange)
	assert.Equal(t, "okx", rates[1].Exchange)
}

func TestGetFundingRates_AllFail(t *testing.T) {
	down := NewStaticSource("binance")
	down.SetError(errors.New("down"))

	o := New(nil, []FundingSource{down})
	_, err := o.GetFundingRates(context.Background(), "ETH")
	assert.ErrorIs(t, err, ErrNoFunding)
}

func TestBreaker_OpensAfterRepeatedFailures(t *testing.T) {
	src := NewStaticSource("pyth")
	src.SetError(errors.New("hard down"))

	o := New([]Source{src}, nil, WithRetryPause(time.Microsecond), WithPriceTTL(0))
	for i := 0; i < 6; i++ {
		_, _ = o.GetPrice(context.Background(), "ETH")
	}
	callsWhenTripped := src.Calls()

	// With the breaker open, further reads stop reaching the source.
	for i := 0; i < 5; i++ {
		_, err := o.GetPrice(context.Background(), "ETH")
		assert.Error(t, err)
	}
	assert.Equal(t, callsWhenTripped, src.Calls(), "an open breaker must shed load from the failing source")
}
