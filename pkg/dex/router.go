package dex

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// swapGasFallback is used when the node's gas estimator fails.
	swapGasFallback = 300000
	swapDeadline    = 5 * time.Minute
	bpsDenominator  = 10000
)

var swapExactTokensSelector = crypto.Keccak256([]byte("swapExactTokensForTokens(uint256,uint256,address[],address,uint256)"))[:4]

// Router swaps through a V2-style on-chain router contract.
type Router struct {
	contract common.Address
	sender   TxSender
	registry *Registry
	nowFn    func() time.Time
}

// NewRouter binds a router contract to a transaction sender.
func NewRouter(contract common.Address, sender TxSender, registry *Registry) *Router {
	return &Router{contract: contract, sender: sender, registry: registry, nowFn: time.Now}
}

// Swap sells amountIn of tokenIn for tokenOut through a direct pair,
// reverting if the fill is worse than minOut. Both amounts are base units.
func (r *Router) Swap(ctx context.Context, tokenIn, tokenOut string, amountIn, minOut *big.Int) (string, error) {
	in, err := r.registry.Lookup(tokenIn)
	if err != nil {
		return "", err
	}
	out, err := r.registry.Lookup(tokenOut)
	if err != nil {
		return "", err
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return "", fmt.Errorf("dex: swap amount must be positive")
	}
	if minOut == nil {
		minOut = big.NewInt(0)
	}

	deadline := big.NewInt(r.nowFn().Add(swapDeadline).Unix())
	data := swapCalldata(amountIn, minOut, []common.Address{in.Address, out.Address}, r.sender.Address(), deadline)
	tx, err := r.sender.SendCall(ctx, r.contract, big.NewInt(0), data, swapGasFallback)
	if err != nil {
		return "", fmt.Errorf("dex: swap %s->%s: %w", in.Symbol, out.Symbol, err)
	}
	return tx, nil
}

// MinOutForSlippage derives the worst acceptable fill from an expected
// output and a slippage tolerance in basis points.
func MinOutForSlippage(expectedOut *big.Int, slippageBps int64) *big.Int {
	if expectedOut == nil || slippageBps < 0 {
		return big.NewInt(0)
	}
	keep := big.NewInt(bpsDenominator - slippageBps)
	if keep.Sign() < 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(expectedOut, keep)
	return out.Div(out, big.NewInt(bpsDenominator))
}

// swapCalldata ABI-encodes swapExactTokensForTokens. The path array is the
// only dynamic argument, so its data sits right after the five head words.
func swapCalldata(amountIn, minOut *big.Int, path []common.Address, to common.Address, deadline *big.Int) []byte {
	head := 5 * 32
	data := make([]byte, 0, 4+head+32+len(path)*32)
	data = append(data, swapExactTokensSelector...)
	data = append(data, common.LeftPadBytes(amountIn.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(minOut.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(int64(head)).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(deadline.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(int64(len(path))).Bytes(), 32)...)
	for _, hop := range path {
		data = append(data, common.LeftPadBytes(hop.Bytes(), 32)...)
	}
	return data
}
