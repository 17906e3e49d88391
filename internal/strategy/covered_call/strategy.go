package covered_call

import (
	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/strategy"
)

// CoveredCall sells one call against 100 shares bought at the entry close
type CoveredCall struct{}

// New creates a covered call strategy
func New() *CoveredCall {
	return &CoveredCall{}
}

func (c *CoveredCall) Name() core.Strategy {
	return core.StrategyCoveredCall
}

func (c *CoveredCall) Description() string {
	return "Long 100 shares, short one call at the target delta"
}

// Evaluate sells the call nearest the target delta. If the stock settles
// above the strike the shares are called away at the strike.
func (c *CoveredCall) Evaluate(s strategy.Setup) (*strategy.Trade, bool) {
	if s.Chain == nil {
		return nil, false
	}
	call, ok := strategy.ClosestDelta(strategy.WithDelta(s.Chain.Calls, s, strategy.OneSided), s.TargetDelta)
	if !ok {
		return nil, false
	}

	strike := call.Contract.Strike
	premium := call.Contract.Bid
	profit := premium * 100
	outcome := "Expired OTM"

	if s.Settlement > strike {
		outcome = "Expired ITM"
		profit += (strike - s.Spot) * 100
	}

	return &strategy.Trade{
		Strategy:   c.Name(),
		EntryDate:  s.Date,
		Expiration: s.Expiration,
		Spot:       s.Spot,
		Settlement: s.Settlement,
		Premium:    premium,
		Profit:     profit,
		Outcome:    outcome,
		Legs:       []strategy.Leg{{Short: true, Contract: call.Contract, Delta: call.Delta}},
	}, true
}
