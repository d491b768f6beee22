package dex

import (
	"context"
	"fmt"

	"seidefi/pkg/chain"
	"seidefi/pkg/oracle"
)

// PriceSource supplies spot prices used to size direct-pool swaps.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (*oracle.Quote, error)
}

// RouterSpot executes USD-denominated spot trades straight through the
// on-chain router. It covers deployments without an aggregator endpoint;
// sizing and the minimum fill come from an oracle price instead of a route
// quote.
type RouterSpot struct {
	router      *Router
	registry    *Registry
	prices      PriceSource
	slippageBps int64
}

// NewRouterSpot binds the router to a price source for swap sizing.
func NewRouterSpot(router *Router, registry *Registry, prices PriceSource, slippageBps int) *RouterSpot {
	return &RouterSpot{
		router:      router,
		registry:    registry,
		prices:      prices,
		slippageBps: int64(slippageBps),
	}
}

// BuySpot swaps usdAmount of the quote stable into the named token.
func (s *RouterSpot) BuySpot(ctx context.Context, symbol string, usdAmount float64) (string, error) {
	tok, price, err := s.resolve(ctx, symbol, usdAmount)
	if err != nil {
		return "", err
	}
	stable := s.registry.Quote()
	amountIn := chain.ToBaseUnits(usdAmount, stable.Decimals)
	expectedOut := chain.ToBaseUnits(usdAmount/price, tok.Decimals)
	minOut := MinOutForSlippage(expectedOut, s.slippageBps)
	return s.router.Swap(ctx, stable.Symbol, tok.Symbol, amountIn, minOut)
}

// SellSpot swaps a usdAmount-worth of the named token back into the quote
// stable.
func (s *RouterSpot) SellSpot(ctx context.Context, symbol string, usdAmount float64) (string, error) {
	tok, price, err := s.resolve(ctx, symbol, usdAmount)
	if err != nil {
		return "", err
	}
	stable := s.registry.Quote()
	amountIn := chain.ToBaseUnits(usdAmount/price, tok.Decimals)
	expectedOut := chain.ToBaseUnits(usdAmount, stable.Decimals)
	minOut := MinOutForSlippage(expectedOut, s.slippageBps)
	return s.router.Swap(ctx, tok.Symbol, stable.Symbol, amountIn, minOut)
}

func (s *RouterSpot) resolve(ctx context.Context, symbol string, usdAmount float64) (Token, float64, error) {
	if usdAmount <= 0 {
		return Token{}, 0, fmt.Errorf("dex: trade amount must be positive, got %v", usdAmount)
	}
	tok, err := s.registry.Lookup(symbol)
	if err != nil {
		return Token{}, 0, err
	}
	quote, err := s.prices.GetPrice(ctx, symbol)
	if err != nil {
		return Token{}, 0, fmt.Errorf("dex: price %s: %w", symbol, err)
	}
	if quote.Price <= 0 {
		return Token{}, 0, fmt.Errorf("dex: non-positive price for %s", symbol)
	}
	return tok, quote.Price, nil
}
