package cash_secured_put

import (
	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/strategy"
)

// CashSecuredPut sells one put with the strike value held in cash
type CashSecuredPut struct{}

// New creates a cash-secured put strategy
func New() *CashSecuredPut {
	return &CashSecuredPut{}
}

func (c *CashSecuredPut) Name() core.Strategy {
	return core.StrategyCashSecuredPut
}

func (c *CashSecuredPut) Description() string {
	return "Short one put at the target delta, secured by cash"
}

// Evaluate sells the put nearest the target delta. Settlement below the
// strike is assigned and marked at the settlement price.
func (c *CashSecuredPut) Evaluate(s strategy.Setup) (*strategy.Trade, bool) {
	if s.Chain == nil {
		return nil, false
	}
	put, ok := strategy.ClosestDelta(strategy.WithDelta(s.Chain.Puts, s, strategy.OneSided), s.TargetDelta)
	if !ok {
		return nil, false
	}

	strike := put.Contract.Strike
	premium := put.Contract.Bid
	profit := premium * 100
	outcome := "Expired OTM"

	if s.Settlement < strike {
		outcome = "Expired ITM"
		profit -= (strike - s.Settlement) * 100
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
		Legs:       []strategy.Leg{{Short: true, Contract: put.Contract, Delta: put.Delta}},
	}, true
}
