// Package georouter chooses between hedge-execution venues (regulated CEX vs
// on-chain perps) based on the user's jurisdiction and provider preference,
// then dispatches hedges through the selected perp provider.
package georouter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"seidefi/pkg/perp"
)

// Geography is the user's regulatory jurisdiction.
type Geography string

const (
	GeoUS     Geography = "US"
	GeoEU     Geography = "EU"
	GeoAsia   Geography = "ASIA"
	GeoGlobal Geography = "GLOBAL"
)

// Preference expresses how strongly the user binds to a venue class.
type Preference string

const (
	// PreferenceGeographic picks the venue best suited to the jurisdiction.
	PreferenceGeographic Preference = "geographic"
	// PreferenceGlobal ignores jurisdiction niceties where possible.
	PreferenceGlobal Preference = "global"
	// PreferenceCoinbaseOnly forces the regulated venue or fails.
	PreferenceCoinbaseOnly Preference = "coinbase_only"
	// PreferenceOnchainOnly forces the on-chain venue unconditionally.
	PreferenceOnchainOnly Preference = "onchain_only"
)

// ErrNoCredentials indicates the regulated venue was required but not credentialed.
var ErrNoCredentials = errors.New("georouter: regulated provider requires credentials")

// Config fixes the routing inputs at construction.
type Config struct {
	Geography            Geography
	Preference           Preference
	RegulatedCredentials bool // whether the regulated provider is credentialed
}

// Normalise folds unknown values onto defaults.
func (c *Config) Normalise() {
	switch Geography(strings.ToUpper(string(c.Geography))) {
	case GeoUS, GeoEU, GeoAsia:
		c.Geography = Geography(strings.ToUpper(string(c.Geography)))
	default:
		c.Geography = GeoGlobal
	}
	switch Preference(strings.ToLower(string(c.Preference))) {
	case PreferenceGlobal, PreferenceCoinbaseOnly, PreferenceOnchainOnly:
		c.Preference = Preference(strings.ToLower(string(c.Preference)))
	default:
		c.Preference = PreferenceGeographic
	}
}

// HedgeResult is the structured outcome of a dispatched hedge.
type HedgeResult struct {
	Success        bool
	Provider       string
	TxRef          string
	Symbol         string
	Side           perp.Side
	SizeUSD        float64
	HedgeRatio     float64 // realized size / position value
	ILReductionPct float64 // provider's claimed estimate
	Reason         string  // populated on failure
}

// Router resolves a perp provider per the geographic decision table. The
// provider pair is fixed at construction; selection itself is pure.
type Router struct {
	cfg       Config
	regulated perp.Provider
	onchain   perp.Provider
}

// NewRouter builds a router over the two venue variants. Either provider may
// be nil when genuinely unavailable; selection will error accordingly.
func NewRouter(cfg Config, regulated, onchain perp.Provider) *Router {
	cfg.Normalise()
	return &Router{cfg: cfg, regulated: regulated, onchain: onchain}
}

// SelectProvider applies the (geography, preference) decision table.
func (r *Router) SelectProvider() (perp.Provider, error) {
	switch r.cfg.Preference {
	case PreferenceCoinbaseOnly:
		if !r.cfg.RegulatedCredentials || r.regulated == nil {
			return nil, ErrNoCredentials
		}
		return r.regulated, nil
	case PreferenceOnchainOnly:
		return r.requireOnchain()
	}

	switch r.cfg.Geography {
	case GeoUS:
		if r.cfg.RegulatedCredentials && r.regulated != nil &&
			(r.cfg.Preference == PreferenceGeographic || r.cfg.Preference == PreferenceGlobal) {
			return r.regulated, nil
		}
		return r.requireOnchain()
	case GeoEU, GeoAsia:
		return r.requireOnchain()
	default: // GLOBAL
		if r.cfg.Preference == PreferenceGeographic && r.cfg.RegulatedCredentials && r.regulated != nil {
			return r.regulated, nil
		}
		return r.requireOnchain()
	}
}

func (r *Router) requireOnchain() (perp.Provider, error) {
	if r.onchain == nil {
		return nil, errors.New("georouter: on-chain provider unavailable")
	}
	return r.onchain, nil
}

const (
	hedgeLeverage    = 1
	hedgeSlippageBps = 50
)

// ExecuteHedge selects a venue, obtains its hedge recommendation and opens
// the recommended position at 1x leverage with 50bps slippage tolerance.
// Venue-level failures come back inside the result; only selection failures
// surface as errors.
func (r *Router) ExecuteHedge(ctx context.Context, lp perp.LPView) (*HedgeResult, error) {
	if lp.ValueUSD <= 0 {
		return nil, fmt.Errorf("georouter: lp value must be positive, got %v", lp.ValueUSD)
	}
	provider, err := r.SelectProvider()
	if err != nil {
		return nil, err
	}

	rec := defaultRecommendation(lp)
	if advisor, ok := provider.(perp.HedgeAdvisor); ok {
		advised, err := advisor.GetHedgeRecommendation(ctx, lp)
		if err != nil {
			logx.WithContext(ctx).Errorf("georouter: %s hedge recommendation failed, using delta default: %v", provider.Name(), err)
		} else if advised != nil {
			rec = advised
		}
	}

	txRef, err := provider.OpenPosition(ctx, perp.OpenParams{
		Symbol:      rec.Symbol,
		Side:        rec.Side,
		SizeUSD:     rec.SizeUSD,
		Leverage:    hedgeLeverage,
		SlippageBps: hedgeSlippageBps,
	})
	if err != nil {
		return &HedgeResult{
			Success:  false,
			Provider: provider.Name(),
			Symbol:   rec.Symbol,
			Side:     rec.Side,
			SizeUSD:  rec.SizeUSD,
			Reason:   err.Error(),
		}, err
	}

	return &HedgeResult{
		Success:        true,
		Provider:       provider.Name(),
		TxRef:          txRef,
		Symbol:         rec.Symbol,
		Side:           rec.Side,
		SizeUSD:        rec.SizeUSD,
		HedgeRatio:     rec.SizeUSD / lp.ValueUSD,
		ILReductionPct: rec.ILReductionPct,
	}, nil
}

// defaultRecommendation delta-matches the volatile leg when a provider has no
// advisory capability.
func defaultRecommendation(lp perp.LPView) *perp.HedgeRecommendation {
	ratio := lp.Ratio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.5
	}
	return &perp.HedgeRecommendation{
		Symbol:         lp.Base,
		Side:           perp.SideShort,
		SizeUSD:        lp.ValueUSD * ratio,
		ILReductionPct: ratio * 80,
	}
}
