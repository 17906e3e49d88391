package covered_call

import (
	"testing"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/strategy"
	"github.com/newthinker/optlab/internal/strategy/strategytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoveredCall_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*CoveredCall)(nil)
}

func TestCoveredCall_Name(t *testing.T) {
	assert.Equal(t, core.StrategyCoveredCall, New().Name())
}

func TestCoveredCall_Evaluate(t *testing.T) {
	tests := []struct {
		name        string
		settlement  float64
		wantProfit  float64
		wantOutcome string
	}{
		{"expires below strike", 104, 120, "Expired OTM"},
		{"settles at strike", 105, 120, "Expired OTM"},
		{"called away", 110, 620, "Expired ITM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade, ok := New().Evaluate(strategytest.Setup(strategytest.StandardChain(), tt.settlement))
			require.True(t, ok)
			assert.Equal(t, 105.0, trade.Legs[0].Contract.Strike)
			assert.Equal(t, 1.20, trade.Premium)
			assert.InDelta(t, tt.wantProfit, trade.Profit, 1e-9)
			assert.Equal(t, tt.wantOutcome, trade.Outcome)
		})
	}
}

func TestCoveredCall_NoTradeableCalls(t *testing.T) {
	chain := strategytest.Chain([]strategytest.Quote{{Strike: 105, Bid: 0, Ask: 0.1}}, nil)
	_, ok := New().Evaluate(strategytest.Setup(chain, 100))
	assert.False(t, ok, "zero bid should be rejected")

	_, ok = New().Evaluate(strategytest.Setup(nil, 100))
	assert.False(t, ok)
}
