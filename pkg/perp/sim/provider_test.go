package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seidefi/pkg/perp"
)

func TestSimProvider_OpenCloseFlow(t *testing.T) {
	p := New()
	ctx := context.Background()
	p.SetMarkPrice("ETH", 2000)

	ref, err := p.OpenPosition(ctx, perp.OpenParams{Symbol: "eth", Side: perp.SideShort, SizeUSD: 1500, Leverage: 1})
	require.NoError(t, err, "OpenPosition should not error")
	assert.NotEmpty(t, ref, "open should return a reference")

	positions, err := p.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "ETH", positions[0].Symbol, "symbol should be canonicalised")
	assert.Equal(t, perp.SideShort, positions[0].Side)
	assert.Equal(t, 1500.0, positions[0].SizeUSD)
	assert.Equal(t, 2000.0, positions[0].EntryPrice)

	// Short profits when price falls.
	p.SetMarkPrice("ETH", 1800)
	positions, err = p.GetPositions(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 150, positions[0].UnrealizedPnL, 1e-9, "10%% drop on a 1500 short yields +150")

	_, err = p.ClosePosition(ctx, "ETH", 0)
	require.NoError(t, err)
	positions, err = p.GetPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions, "full close should remove the position")
}

func TestSimProvider_PartialClose(t *testing.T) {
	p := New()
	ctx := context.Background()
	p.SetMarkPrice("SEI", 0.5)

	_, err := p.OpenPosition(ctx, perp.OpenParams{Symbol: "SEI", Side: perp.SideLong, SizeUSD: 1000})
	require.NoError(t, err)

	_, err = p.ClosePosition(ctx, "SEI", 400)
	require.NoError(t, err)
	positions, err := p.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 600.0, positions[0].SizeUSD)
}

func TestSimProvider_FailNext(t *testing.T) {
	p := New()
	boom := errors.New("venue down")
	p.FailNext(boom)

	_, err := p.OpenPosition(context.Background(), perp.OpenParams{Symbol: "ETH", Side: perp.SideLong, SizeUSD: 100})
	assert.ErrorIs(t, err, boom)

	// Failure is consumed; the next call succeeds.
	_, err = p.OpenPosition(context.Background(), perp.OpenParams{Symbol: "ETH", Side: perp.SideLong, SizeUSD: 100})
	assert.NoError(t, err)
}

func TestSimProvider_HedgeRecommendation(t *testing.T) {
	p := New()
	rec, err := p.GetHedgeRecommendation(context.Background(), perp.LPView{Pair: "ETH/USDC", Base: "ETH", ValueUSD: 10000, Ratio: 0.6})
	require.NoError(t, err)
	assert.Equal(t, "ETH", rec.Symbol)
	assert.Equal(t, perp.SideShort, rec.Side)
	assert.Equal(t, 6000.0, rec.SizeUSD)
	assert.InDelta(t, 48, rec.ILReductionPct, 1e-9)

	_, err = p.GetHedgeRecommendation(context.Background(), perp.LPView{ValueUSD: 0})
	assert.Error(t, err, "zero-value LP view should be rejected")
}
