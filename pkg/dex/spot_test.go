package dex

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seidefi/pkg/oracle"
)

func TestRouterSpot_BuySpot(t *testing.T) {
	sender := &fakeSender{}
	registry := testRegistry(t)
	router := NewRouter(common.HexToAddress("0xbbbb000000000000000000000000000000000001"), sender, registry)

	prices := oracle.NewStaticSource("static")
	prices.SetPrice("SEI", 0.5)

	spot := NewRouterSpot(router, registry, prices, 50)

	tx, err := spot.BuySpot(context.Background(), "SEI", 100)
	require.NoError(t, err)
	assert.Equal(t, "0xtxhash", tx)
	require.Len(t, sender.calls, 1)

	data := sender.calls[0].data
	// amountIn: $100 in 6-decimal USDC.
	assert.Equal(t, big.NewInt(100_000_000), new(big.Int).SetBytes(data[4:36]))
	// minOut: 200 SEI less 50 bps, in 18 decimals.
	expectedOut, _ := new(big.Int).SetString("200000000000000000000", 10)
	wantMin := MinOutForSlippage(expectedOut, 50)
	assert.Equal(t, wantMin, new(big.Int).SetBytes(data[36:68]))
}

func TestRouterSpot_SellSpot(t *testing.T) {
	sender := &fakeSender{}
	registry := testRegistry(t)
	router := NewRouter(common.HexToAddress("0xbbbb000000000000000000000000000000000001"), sender, registry)

	prices := oracle.NewStaticSource("static")
	prices.SetPrice("SEI", 0.5)

	spot := NewRouterSpot(router, registry, prices, 50)

	_, err := spot.SellSpot(context.Background(), "SEI", 100)
	require.NoError(t, err)
	require.Len(t, sender.calls, 1)

	data := sender.calls[0].data
	// amountIn: $100 worth of SEI at 0.5 = 200 SEI in 18 decimals.
	wantIn, _ := new(big.Int).SetString("200000000000000000000", 10)
	assert.Equal(t, wantIn, new(big.Int).SetBytes(data[4:36]))
}

func TestRouterSpot_Errors(t *testing.T) {
	sender := &fakeSender{}
	registry := testRegistry(t)
	router := NewRouter(common.HexToAddress("0xbbbb000000000000000000000000000000000001"), sender, registry)
	prices := oracle.NewStaticSource("static")
	spot := NewRouterSpot(router, registry, prices, 50)

	_, err := spot.BuySpot(context.Background(), "SEI", 0)
	assert.Error(t, err, "non-positive amount rejected")

	_, err = spot.BuySpot(context.Background(), "DOGE", 100)
	assert.Error(t, err, "unknown token rejected")

	_, err = spot.BuySpot(context.Background(), "SEI", 100)
	assert.Error(t, err, "missing price surfaces")
	assert.Empty(t, sender.calls)
}
