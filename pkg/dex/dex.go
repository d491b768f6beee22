// Package dex executes spot swaps on the chain's DEX venues: an on-chain
// V2-style router and an HTTP swap aggregator. The aggregator doubles as the
// spot leg executor for funding-rate hedges.
package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token describes an ERC-20 the agent may trade.
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals int
}

// Registry maps trading symbols to token metadata. Quote is the stable token
// every USD-denominated swap routes through.
type Registry struct {
	tokens map[string]Token
	quote  Token
}

// NewRegistry builds a registry from the token list; the token whose symbol
// matches quoteSymbol becomes the quote side of USD swaps.
func NewRegistry(tokens []Token, quoteSymbol string) (*Registry, error) {
	r := &Registry{tokens: make(map[string]Token, len(tokens))}
	for _, tok := range tokens {
		r.tokens[strings.ToUpper(tok.Symbol)] = tok
	}
	quote, ok := r.tokens[strings.ToUpper(quoteSymbol)]
	if !ok {
		return nil, fmt.Errorf("dex: quote token %q not in registry", quoteSymbol)
	}
	r.quote = quote
	return r, nil
}

// Lookup resolves a trading symbol to its token.
func (r *Registry) Lookup(symbol string) (Token, error) {
	tok, ok := r.tokens[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Token{}, fmt.Errorf("dex: unknown token %q", symbol)
	}
	return tok, nil
}

// Quote returns the stable quote token.
func (r *Registry) Quote() Token { return r.quote }

// TxSender broadcasts a prepared contract call; chain.Client satisfies it.
type TxSender interface {
	SendCall(ctx context.Context, to common.Address, value *big.Int, data []byte, fallbackGas uint64) (string, error)
	Address() common.Address
}
