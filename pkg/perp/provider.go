// Package perp defines the exchange-agnostic perpetual-futures provider
// capability used for hedge execution, plus shared domain types. Concrete
// implementations live in subpackages (coinbase, onchain, sim).
package perp

import (
	"context"
	"errors"
)

// ErrUnsupported marks an operation a provider cannot perform yet. Callers
// should treat it as a routing signal, not a failure of the venue.
var ErrUnsupported = errors.New("perp: operation not supported by provider")

// ErrNotConfigured marks a provider whose required settings (typically API
// credentials) are absent. BuildProviders skips such providers instead of
// failing the whole build, so a config may enumerate venues the deployment
// has no keys for.
var ErrNotConfigured = errors.New("perp: provider not configured")

// Side is the direction of a perp position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// OpenParams describes a position open request.
type OpenParams struct {
	Symbol      string // base asset, e.g. "ETH"
	Side        Side
	SizeUSD     float64
	Leverage    int
	SlippageBps int
}

// Position is a live perp position in provider-normalized form.
type Position struct {
	Symbol        string
	Side          Side
	SizeUSD       float64
	EntryPrice    float64
	Leverage      int
	UnrealizedPnL float64
}

// Provider exposes perp trading in an exchange-agnostic fashion.
type Provider interface {
	Name() string
	// OpenPosition submits a position open and returns the venue transaction
	// or order reference.
	OpenPosition(ctx context.Context, params OpenParams) (string, error)
	// ClosePosition reduces or closes the position on symbol. A zero sizeUSD
	// closes the full position.
	ClosePosition(ctx context.Context, symbol string, sizeUSD float64) (string, error)
	// GetPositions lists all open positions.
	GetPositions(ctx context.Context) ([]Position, error)
}

// LPView is the provider-facing summary of an LP position being hedged.
type LPView struct {
	Pair     string // e.g. "ETH/USDC"
	Base     string // volatile leg, e.g. "ETH"
	ValueUSD float64
	Ratio    float64 // target hedge ratio
}

// HedgeRecommendation is a provider's suggested hedge for an LP position.
type HedgeRecommendation struct {
	Symbol         string
	Side           Side
	SizeUSD        float64
	ILReductionPct float64 // provider's claimed IL reduction estimate
}

// HedgeAdvisor is an optional capability: providers that can recommend a
// hedge for an LP position implement it alongside Provider.
type HedgeAdvisor interface {
	GetHedgeRecommendation(ctx context.Context, lp LPView) (*HedgeRecommendation, error)
}
