package iron_condor

import (
	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/strategy"
)

const (
	outcomeMaxProfit = "Expired OTM (Max Profit)"
	outcomeMaxLoss   = "Expired ITM (Max Loss)"
)

// IronCondor sells a put spread and a call spread around the spot
type IronCondor struct{}

// New creates an iron condor strategy
func New() *IronCondor {
	return &IronCondor{}
}

func (ic *IronCondor) Name() core.Strategy {
	return core.StrategyIronCondor
}

func (ic *IronCondor) Description() string {
	return "Short put and call at the target delta, long wings Width strikes further out"
}

// Evaluate builds the condor and settles it at expiration. Only the two
// terminal outcomes are modelled: full credit kept when settlement lands
// strictly between the short strikes, otherwise the maximum loss.
func (ic *IronCondor) Evaluate(s strategy.Setup) (*strategy.Trade, bool) {
	if s.Chain == nil {
		return nil, false
	}
	puts := strategy.WithDelta(s.Chain.Puts, s, strategy.TwoSided)
	calls := strategy.WithDelta(s.Chain.Calls, s, strategy.TwoSided)
	if len(puts) == 0 || len(calls) == 0 {
		return nil, false
	}

	shortPut, _ := strategy.ClosestDelta(puts, s.TargetDelta)
	shortCall, _ := strategy.ClosestDelta(calls, s.TargetDelta)
	longPut, _ := strategy.ClosestStrike(puts, shortPut.Contract.Strike-s.Width)
	longCall, _ := strategy.ClosestStrike(calls, shortCall.Contract.Strike+s.Width)

	credit := (shortPut.Contract.Bid + shortCall.Contract.Bid) -
		(longPut.Contract.Ask + longCall.Contract.Ask)
	if credit <= 0 {
		return nil, false
	}

	profit := credit * 100
	outcome := outcomeMaxProfit

	inside := shortPut.Contract.Strike < s.Settlement && s.Settlement < shortCall.Contract.Strike
	if !inside {
		actualWidth := longCall.Contract.Strike - shortCall.Contract.Strike
		profit = -(actualWidth*100 - profit)
		outcome = outcomeMaxLoss
	}

	return &strategy.Trade{
		Strategy:   ic.Name(),
		EntryDate:  s.Date,
		Expiration: s.Expiration,
		Spot:       s.Spot,
		Settlement: s.Settlement,
		Premium:    credit,
		Profit:     profit,
		Outcome:    outcome,
		Legs: []strategy.Leg{
			{Short: false, Contract: longPut.Contract, Delta: longPut.Delta},
			{Short: true, Contract: shortPut.Contract, Delta: shortPut.Delta},
			{Short: true, Contract: shortCall.Contract, Delta: shortCall.Delta},
			{Short: false, Contract: longCall.Contract, Delta: longCall.Delta},
		},
	}, true
}
