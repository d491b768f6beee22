package georouter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seidefi/pkg/perp"
	"seidefi/pkg/perp/onchain"
	"seidefi/pkg/perp/sim"
)

func TestSelectProvider_DecisionTable(t *testing.T) {
	regulated := sim.New()
	onchainStub := onchain.NewProvider("")

	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  error
	}{
		{"coinbase-only with creds", Config{Preference: PreferenceCoinbaseOnly, RegulatedCredentials: true}, "sim", nil},
		{"coinbase-only without creds", Config{Preference: PreferenceCoinbaseOnly}, "", ErrNoCredentials},
		{"onchain-only ignores creds", Config{Preference: PreferenceOnchainOnly, RegulatedCredentials: true}, "onchain", nil},
		{"US geographic with creds", Config{Geography: GeoUS, Preference: PreferenceGeographic, RegulatedCredentials: true}, "sim", nil},
		{"US global with creds", Config{Geography: GeoUS, Preference: PreferenceGlobal, RegulatedCredentials: true}, "sim", nil},
		{"US without creds falls back onchain", Config{Geography: GeoUS, Preference: PreferenceGeographic}, "onchain", nil},
		{"EU always onchain", Config{Geography: GeoEU, Preference: PreferenceGeographic, RegulatedCredentials: true}, "onchain", nil},
		{"ASIA always onchain", Config{Geography: GeoAsia, Preference: PreferenceGlobal, RegulatedCredentials: true}, "onchain", nil},
		{"global geographic with creds goes regulated", Config{Geography: GeoGlobal, Preference: PreferenceGeographic, RegulatedCredentials: true}, "sim", nil},
		{"global global preference stays onchain", Config{Geography: GeoGlobal, Preference: PreferenceGlobal, RegulatedCredentials: true}, "onchain", nil},
		{"unknown geography defaults to global", Config{Geography: "MARS", Preference: PreferenceGlobal}, "onchain", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(tt.cfg, regulated, onchainStub)
			provider, err := r.SelectProvider()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, provider.Name())
		})
	}
}

func TestExecuteHedge_RegulatedPath(t *testing.T) {
	regulated := sim.New()
	regulated.SetMarkPrice("ETH", 2000)
	r := NewRouter(Config{Geography: GeoUS, Preference: PreferenceGeographic, RegulatedCredentials: true}, regulated, onchain.NewProvider(""))

	res, err := r.ExecuteHedge(context.Background(), perp.LPView{Pair: "ETH/USDC", Base: "ETH", ValueUSD: 10000, Ratio: 0.6})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "sim", res.Provider)
	assert.NotEmpty(t, res.TxRef)
	assert.Equal(t, perp.SideShort, res.Side)
	assert.InDelta(t, 0.6, res.HedgeRatio, 1e-9, "hedge ratio is realized size over position value")
	assert.InDelta(t, 48, res.ILReductionPct, 1e-9)

	positions, err := regulated.GetPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 6000.0, positions[0].SizeUSD)
	assert.Equal(t, 1, positions[0].Leverage, "hedges open at fixed 1x leverage")
}

func TestExecuteHedge_OnchainUnsupported(t *testing.T) {
	r := NewRouter(Config{Preference: PreferenceOnchainOnly}, nil, onchain.NewProvider(""))

	res, err := r.ExecuteHedge(context.Background(), perp.LPView{Pair: "SEI/USDC", Base: "SEI", ValueUSD: 1000, Ratio: 0.4})
	assert.ErrorIs(t, err, perp.ErrUnsupported, "the on-chain seam must surface a typed unsupported error")
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, "onchain", res.Provider)
}

func TestExecuteHedge_InvalidPosition(t *testing.T) {
	r := NewRouter(Config{Preference: PreferenceOnchainOnly}, nil, onchain.NewProvider(""))
	_, err := r.ExecuteHedge(context.Background(), perp.LPView{Pair: "SEI/USDC", Base: "SEI"})
	assert.Error(t, err, "zero-value positions cannot be hedged")
}
