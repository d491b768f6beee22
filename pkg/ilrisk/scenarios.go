package ilrisk

import "math"

// Scenario reports simulated IL for one relative price change.
type Scenario struct {
	PriceChange float64 // relative, e.g. 0.5 for +50%
	IL          float64 // unhedged, percent
	HedgedIL    float64 // residual after hedging, percent
}

// SimulateScenarios evaluates the constant-product IL approximation
// |2*sqrt(r)/(1+r) - 1| for each relative price change, where r is the new
// price ratio. The hedged figure assumes the fixed hedge effectiveness; it is
// a planning aid, not a market-calibrated model.
func (e *Engine) SimulateScenarios(pos LPPosition, priceChanges []float64) []Scenario {
	out := make([]Scenario, 0, len(priceChanges))
	for _, change := range priceChanges {
		ratio := 1 + change
		var il float64
		if ratio > 0 {
			il = math.Abs(2*math.Sqrt(ratio)/(1+ratio)-1) * 100
		}
		out = append(out, Scenario{
			PriceChange: change,
			IL:          il,
			HedgedIL:    il * (1 - hedgeEffectiveness),
		})
	}
	return out
}
