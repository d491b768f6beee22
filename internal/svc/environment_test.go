package svc_test

import (
	"context"
	"testing"

	"seidefi/internal/config"
	"seidefi/internal/svc"
	"seidefi/pkg/perp"
)

func testConfig(env string) config.Config {
	c := config.Config{Env: env}
	c.TTL = config.CacheTTL{Short: 10, Medium: 60, Long: 300}
	c.Chain.NativeSymbol = "SEI"
	c.Router.Geography = "US"
	c.Router.Preference = "geographic"
	c.Arb.Symbols = []string{"BTC", "ETH"}
	c.Arb.NotionalUSD = 1000
	c.Rebalance.Threshold = 0.02
	c.Rebalance.RangeWidth = 0.1
	return c
}

// TestNewServiceContext_TestEnv verifies that the test environment wires a
// fully usable context without touching any live venue: no chain client, no
// LLM, perp trades routed to the simulator.
func TestNewServiceContext_TestEnv(t *testing.T) {
	ctx := svc.NewServiceContext(testConfig("test"))

	if ctx.Chain != nil {
		t.Fatalf("chain client should be nil without rpc url")
	}
	if ctx.LLM != nil {
		t.Fatalf("llm client should be nil without llm config")
	}
	if ctx.Oracle == nil || ctx.PerpRouter == nil || ctx.AMM == nil || ctx.ILRisk == nil || ctx.FundingArb == nil {
		t.Fatalf("core engines not wired")
	}
	if ctx.Actions == nil {
		t.Fatalf("action registry not wired")
	}

	provider, err := ctx.PerpRouter.SelectProvider()
	if err != nil {
		t.Fatalf("SelectProvider: %v", err)
	}
	if got := provider.Name(); got != "sim" {
		t.Fatalf("test env should route perps to the simulator, got %q", got)
	}
}

// TestNewServiceContext_UncredentialedCoinbase verifies that a config
// enumerating a credentialed venue with no keys in the environment still
// boots: the venue is skipped and routing falls back to the on-chain slot.
func TestNewServiceContext_UncredentialedCoinbase(t *testing.T) {
	cfg := testConfig("dev")
	cfg.Perp.Value = &perp.Config{
		Default: "sim",
		Providers: map[string]*perp.ProviderConfig{
			"sim":      {Type: "sim"},
			"coinbase": {Type: "coinbase"},
		},
	}

	ctx := svc.NewServiceContext(cfg)
	if _, ok := ctx.PerpProviders["coinbase"]; ok {
		t.Fatalf("uncredentialed coinbase should have been skipped")
	}
	provider, err := ctx.PerpRouter.SelectProvider()
	if err != nil {
		t.Fatalf("SelectProvider: %v", err)
	}
	if got := provider.Name(); got != "sim" {
		t.Fatalf("expected sim fallback, got %q", got)
	}
}

// TestServiceContext_PerpFlow exercises an end-to-end perp trade through the
// action registry against the simulator.
func TestServiceContext_PerpFlow(t *testing.T) {
	sctx := svc.NewServiceContext(testConfig("test"))

	res := sctx.Actions.Dispatch(context.Background(), "long ETH 2x with $500")
	if res == nil {
		t.Fatalf("dispatch returned nil result")
	}
	if res.Error != "" {
		t.Fatalf("perp open failed: %s", res.Error)
	}

	res = sctx.Actions.Dispatch(context.Background(), "show my portfolio")
	if res == nil || res.Error != "" {
		t.Fatalf("portfolio dispatch failed")
	}
}
