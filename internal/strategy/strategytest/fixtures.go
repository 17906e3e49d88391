// Package strategytest provides option chain fixtures for strategy tests.
package strategytest

import (
	"time"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/strategy"
)

// Entry and Expiry are the fixture dates: a Monday and a Friday 32 days later.
var (
	Entry  = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	Expiry = time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC)
)

// Quote is a bid/ask pair for one strike
type Quote struct {
	Strike float64
	Bid    float64
	Ask    float64
}

// Chain builds a chain with a 25% implied volatility on every contract.
// With spot 100 and 30 days to expiry the 0.30 delta call is the 105 strike
// and the 0.30 delta put is the 95 strike.
func Chain(calls, puts []Quote) *core.OptionChain {
	return &core.OptionChain{
		Symbol:     "TEST",
		Expiration: Expiry,
		Underlying: 100,
		Calls:      contracts(calls, core.Call),
		Puts:       contracts(puts, core.Put),
	}
}

// StandardChain is a five-strike chain from 90 to 110.
func StandardChain() *core.OptionChain {
	return Chain(
		[]Quote{{90, 10.2, 10.4}, {95, 5.8, 6.0}, {100, 2.6, 2.7}, {105, 1.20, 1.30}, {110, 0.35, 0.40}},
		[]Quote{{90, 0.30, 0.35}, {95, 1.00, 1.10}, {100, 2.3, 2.4}, {105, 5.4, 5.6}, {110, 9.9, 10.1}},
	)
}

// Setup returns an entry at spot 100, 30 days to expiry, 5% rate, 0.30 delta.
func Setup(chain *core.OptionChain, settlement float64) strategy.Setup {
	return strategy.Setup{
		Date:        Entry,
		Expiration:  Expiry,
		DaysToExp:   30,
		Spot:        100,
		Settlement:  settlement,
		RiskFree:    0.05,
		TargetDelta: 0.3,
		Width:       5,
		Chain:       chain,
	}
}

func contracts(quotes []Quote, typ core.OptionType) []core.OptionContract {
	out := make([]core.OptionContract, len(quotes))
	for i, q := range quotes {
		out[i] = core.OptionContract{
			Type:              typ,
			Strike:            q.Strike,
			Bid:               q.Bid,
			Ask:               q.Ask,
			ImpliedVolatility: 0.25,
			Expiration:        Expiry,
		}
	}
	return out
}
