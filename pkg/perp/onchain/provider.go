// Package onchain is the on-chain perps seam. No venue integration exists
// yet, so every trading operation reports perp.ErrUnsupported rather than
// silently succeeding; the geographic router treats that as a typed
// "not yet implemented" signal.
package onchain

import (
	"context"

	"seidefi/pkg/perp"
)

func init() {
	perp.RegisterProvider("onchain", func(name string, cfg *perp.ProviderConfig) (perp.Provider, error) {
		return NewProvider(cfg.RPCURL), nil
	})
}

// Provider is the placeholder on-chain perps implementation.
type Provider struct {
	rpcURL string
}

// NewProvider constructs the stub. The RPC URL is carried so the future
// integration keeps the same construction path.
func NewProvider(rpcURL string) *Provider {
	return &Provider{rpcURL: rpcURL}
}

// Name identifies the provider for routing and logs.
func (p *Provider) Name() string { return "onchain" }

// OpenPosition is not implemented on-chain yet.
func (p *Provider) OpenPosition(_ context.Context, _ perp.OpenParams) (string, error) {
	return "", perp.ErrUnsupported
}

// ClosePosition is not implemented on-chain yet.
func (p *Provider) ClosePosition(_ context.Context, _ string, _ float64) (string, error) {
	return "", perp.ErrUnsupported
}

// GetPositions reports no positions: nothing can have been opened here.
func (p *Provider) GetPositions(_ context.Context) ([]perp.Position, error) {
	return []perp.Position{}, nil
}
