package strategy

import (
	"math"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/pricing"
)

// Priced is a contract with its model delta
type Priced struct {
	Contract core.OptionContract
	Delta    float64
}

// Filter decides whether a contract is tradeable
type Filter func(core.OptionContract) bool

// OneSided accepts contracts with a positive bid and implied volatility.
func OneSided(c core.OptionContract) bool {
	return c.HasQuote() && c.ImpliedVolatility > 0 && c.Bid > 0
}

// TwoSided accepts contracts quoted on both sides.
func TwoSided(c core.OptionContract) bool {
	return c.HasTwoSidedQuote()
}

// WithDelta prices every contract that passes filter. Contracts whose delta
// cannot be computed are dropped.
func WithDelta(contracts []core.OptionContract, s Setup, filter Filter) []Priced {
	out := make([]Priced, 0, len(contracts))
	t := s.YearsToExpiry()
	for _, c := range contracts {
		if !filter(c) {
			continue
		}
		d, err := pricing.Delta(c.Type, s.Spot, c.Strike, t, s.RiskFree, c.ImpliedVolatility)
		if err != nil || math.IsNaN(d) {
			continue
		}
		out = append(out, Priced{Contract: c, Delta: d})
	}
	return out
}

// ClosestDelta returns the contract whose |delta| is nearest target. The
// earliest contract wins ties.
func ClosestDelta(priced []Priced, target float64) (Priced, bool) {
	return closest(priced, func(p Priced) float64 {
		return math.Abs(math.Abs(p.Delta) - target)
	})
}

// ClosestStrike returns the contract whose strike is nearest strike.
func ClosestStrike(priced []Priced, strike float64) (Priced, bool) {
	return closest(priced, func(p Priced) float64 {
		return math.Abs(p.Contract.Strike - strike)
	})
}

func closest(priced []Priced, distance func(Priced) float64) (Priced, bool) {
	if len(priced) == 0 {
		return Priced{}, false
	}
	best := 0
	bestDist := distance(priced[0])
	for i := 1; i < len(priced); i++ {
		if d := distance(priced[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return priced[best], true
}
