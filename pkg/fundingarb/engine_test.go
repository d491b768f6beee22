package fundingarb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seidefi/pkg/oracle"
	"seidefi/pkg/perp/sim"
)

type fakeFeed struct {
	rates map[string][]oracle.FundingRate
	err   error
}

func (f *fakeFeed) GetFundingRates(_ context.Context, symbol string) ([]oracle.FundingRate, error) {
	if f.err != nil {
		return nil, f.err
	}
	rates, ok := f.rates[symbol]
	if !ok {
		return nil, fmt.Errorf("no rates for %s", symbol)
	}
	return rates, nil
}

type fakeSpot struct {
	buys, sells []string
	err         error
}

func (f *fakeSpot) BuySpot(_ context.Context, symbol string, usd float64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.buys = append(f.buys, symbol)
	return "0xbuy", nil
}

func (f *fakeSpot) SellSpot(_ context.Context, symbol string, usd float64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sells = append(f.sells, symbol)
	return "0xsell", nil
}

func rate(exchange string, value float64) oracle.FundingRate {
	return oracle.FundingRate{Exchange: exchange, Symbol: "ETH", Rate: value, Timestamp: time.Now()}
}

func TestScan_DiscardsSubThresholdSpread(t *testing.T) {
	feed := &fakeFeed{rates: map[string][]oracle.FundingRate{
		"ETH": {rate("binance", 0.0001), rate("bybit", 0.00015)},
	}}
	e := NewEngine(feed, &fakeSpot{}, nil)

	opps, err := e.Scan(context.Background(), []string{"ETH"}, 1000)
	require.NoError(t, err)
	assert.Empty(t, opps, "a 0.00005 spread is below the cutoff and must be discarded")
}

func TestScan_ProfitAndConfidence(t *testing.T) {
	feed := &fakeFeed{rates: map[string][]oracle.FundingRate{
		"ETH": {rate("binance", 0.011), rate("woox", 0.001)},
	}}
	e := NewEngine(feed, &fakeSpot{}, nil)

	opps, err := e.Scan(context.Background(), []string{"ETH"}, 1000)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.InDelta(t, 0.01, opp.Spread, 1e-12)
	assert.InDelta(t, 10950, opp.AnnualProfit, 1e-9, "0.01 spread on $1000 at 3 fundings/day")
	assert.InDelta(t, 0.6, opp.Confidence, 1e-9, "binance 1.0 * woox 0.6")
	assert.Equal(t, RiskLow, opp.Risk, "wide spreads are low risk")
	assert.Equal(t, "woox", opp.LongExchange, "long leg sits on the lower funding rate")
	assert.Equal(t, "binance", opp.ShortExchange)
	assert.Equal(t, HedgeLongSpot, opp.HedgeSide, "positive short-side funding pairs with a spot-buy hedge")
}

func TestScan_RiskBuckets(t *testing.T) {
	tests := []struct {
		spread float64
		want   Risk
	}{
		{0.002, RiskLow},
		{0.0008, RiskMedium},
		{0.0002, RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifySpread(tt.spread), "spread %v", tt.spread)
	}
}

func TestScan_SortedByProfitDescending(t *testing.T) {
	feed := &fakeFeed{rates: map[string][]oracle.FundingRate{
		"ETH": {rate("binance", 0.003), rate("bybit", 0.001), rate("okx", 0.0006)},
	}}
	e := NewEngine(feed, &fakeSpot{}, nil)

	opps, err := e.Scan(context.Background(), []string{"ETH"}, 1000)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(opps), 2)
	for i := 1; i < len(opps); i++ {
		assert.GreaterOrEqual(t, opps[i-1].AnnualProfit, opps[i].AnnualProfit, "opportunities must be best-first")
	}
}

func TestScan_NegativeFundingUsesPerpShortHedge(t *testing.T) {
	feed := &fakeFeed{rates: map[string][]oracle.FundingRate{
		"ETH": {rate("binance", -0.004), rate("bybit", -0.001)},
	}}
	e := NewEngine(feed, &fakeSpot{}, nil)

	opps, err := e.Scan(context.Background(), []string{"ETH"}, 1000)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, HedgeShortPerp, opps[0].HedgeSide)
}

func TestExecute_SpotHedgeLeg(t *testing.T) {
	spot := &fakeSpot{}
	e := NewEngine(nil, spot, nil)

	opp := Opportunity{Symbol: "ETH", ShortExchange: "binance", ShortRate: 0.003, Spread: 0.002, HedgeSide: HedgeLongSpot}
	pos, err := e.Execute(context.Background(), opp, 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH"}, spot.buys)
	assert.Equal(t, StatusActive, pos.Status)
	assert.Contains(t, pos.ID, "ETH_", "position id is symbol_timestamp")
	assert.Contains(t, pos.ManualLeg, "SHORT ETH perp on binance", "the CEX leg is left to the operator")

	got, ok := e.Position(pos.ID)
	require.True(t, ok)
	assert.Equal(t, pos.ID, got.ID)
}

func TestExecute_PerpHedgeLeg(t *testing.T) {
	perps := sim.New()
	perps.SetMarkPrice("ETH", 2000)
	e := NewEngine(nil, nil, perps)

	opp := Opportunity{Symbol: "ETH", LongExchange: "bybit", LongRate: -0.004, Spread: 0.003, HedgeSide: HedgeShortPerp}
	pos, err := e.Execute(context.Background(), opp, 500)
	require.NoError(t, err)
	assert.NotEmpty(t, pos.TxRef)

	positions, err := perps.GetPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 500.0, positions[0].SizeUSD)
}

func TestExecute_LegFailurePropagates(t *testing.T) {
	spot := &fakeSpot{err: errors.New("router reverted")}
	e := NewEngine(nil, spot, nil)

	_, err := e.Execute(context.Background(), Opportunity{Symbol: "ETH", HedgeSide: HedgeLongSpot}, 1000)
	assert.ErrorContains(t, err, "router reverted")
	assert.Empty(t, e.Positions(), "failed execution must not record a position")
}

func TestClose_ReversesHedgeLegOnly(t *testing.T) {
	spot := &fakeSpot{}
	e := NewEngine(nil, spot, nil)

	pos, err := e.Execute(context.Background(), Opportunity{Symbol: "ETH", HedgeSide: HedgeLongSpot, Spread: 0.002}, 1000)
	require.NoError(t, err)

	require.NoError(t, e.Close(context.Background(), pos.ID))
	assert.Equal(t, []string{"ETH"}, spot.sells)

	got, _ := e.Position(pos.ID)
	assert.Equal(t, StatusClosed, got.Status)
	assert.Error(t, e.Close(context.Background(), pos.ID), "double close must be rejected")
}

func TestUpdatePnL_AccrualAndAutoCloseByAge(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	e := NewEngine(nil, &fakeSpot{}, nil, WithClock(func() time.Time { return now }))

	pos, err := e.Execute(context.Background(), Opportunity{Symbol: "ETH", HedgeSide: HedgeLongSpot, Spread: 0.0002}, 1000)
	require.NoError(t, err)

	// Two days in: linear accrual, still active.
	now = now.Add(48 * time.Hour)
	closed := e.UpdatePnL(context.Background())
	assert.Empty(t, closed)
	got, _ := e.Position(pos.ID)
	assert.InDelta(t, 0.0002*1000*3*2, got.FundingPnL, 1e-9, "two days of thrice-daily funding")

	// Past the seven-day cap: auto-closed.
	now = now.Add(6 * 24 * time.Hour)
	closed = e.UpdatePnL(context.Background())
	assert.Equal(t, []string{pos.ID}, closed)
	got, _ = e.Position(pos.ID)
	assert.Equal(t, StatusClosed, got.Status)
}
