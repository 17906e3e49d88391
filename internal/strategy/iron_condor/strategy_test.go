package iron_condor

import (
	"math"
	"testing"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/strategy"
	"github.com/newthinker/optlab/internal/strategy/strategytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIronCondor_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*IronCondor)(nil)
}

func TestIronCondor_Name(t *testing.T) {
	assert.Equal(t, core.StrategyIronCondor, New().Name())
}

func TestIronCondor_Evaluate(t *testing.T) {
	// short 95P/105C, long 90P/110C:
	// credit = (1.00 + 1.20) - (0.35 + 0.40) = 1.45
	tests := []struct {
		name        string
		settlement  float64
		wantProfit  float64
		wantOutcome string
	}{
		{"inside the shorts", 100, 145, outcomeMaxProfit},
		{"through the call side", 108, -355, outcomeMaxLoss},
		{"through the put side", 92, -355, outcomeMaxLoss},
		{"pinned to short strike", 95, -355, outcomeMaxLoss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade, ok := New().Evaluate(strategytest.Setup(strategytest.StandardChain(), tt.settlement))
			require.True(t, ok)
			require.Len(t, trade.Legs, 4)

			strikes := []float64{}
			for _, leg := range trade.Legs {
				strikes = append(strikes, leg.Contract.Strike)
			}
			assert.Equal(t, []float64{90, 95, 105, 110}, strikes)
			assert.InDelta(t, 1.45, trade.Premium, 1e-9)
			assert.InDelta(t, tt.wantProfit, trade.Profit, 1e-9)
			assert.Equal(t, tt.wantOutcome, trade.Outcome)
		})
	}
}

func TestIronCondor_RejectsDebit(t *testing.T) {
	chain := strategytest.Chain(
		[]strategytest.Quote{{Strike: 100, Bid: 2.6, Ask: 2.7}, {Strike: 105, Bid: 1.20, Ask: 1.30}, {Strike: 110, Bid: 0.35, Ask: 3.00}},
		[]strategytest.Quote{{Strike: 90, Bid: 0.30, Ask: 3.00}, {Strike: 95, Bid: 1.00, Ask: 1.10}, {Strike: 100, Bid: 2.3, Ask: 2.4}},
	)
	_, ok := New().Evaluate(strategytest.Setup(chain, 100))
	assert.False(t, ok, "non-positive credit should be rejected")
}

func TestIronCondor_RequiresAsk(t *testing.T) {
	chain := strategytest.StandardChain()
	for i := range chain.Calls {
		chain.Calls[i].Ask = math.NaN()
	}
	_, ok := New().Evaluate(strategytest.Setup(chain, 100))
	assert.False(t, ok)
}
