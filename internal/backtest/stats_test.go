package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/newthinker/optlab/internal/strategy"
)

func trades(profits ...float64) []strategy.Trade {
	out := make([]strategy.Trade, len(profits))
	for i, p := range profits {
		out[i] = strategy.Trade{Profit: p}
	}
	return out
}

func TestCalculateStats(t *testing.T) {
	s := CalculateStats(trades(100, -50, 200, -300, 50))

	assert.Equal(t, 3, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.Equal(t, 60.0, s.WinRate)
	assert.Equal(t, 0.0, s.AverageProfit)
	assert.Equal(t, 200.0, s.BestTrade)
	assert.Equal(t, -300.0, s.WorstTrade)
	// peak 250 after the third trade, trough -50 after the fourth
	assert.Equal(t, 300.0, s.MaxDrawdown)
	assert.Equal(t, 0.0, s.SharpeRatio)
}

func TestCalculateStats_Empty(t *testing.T) {
	s := CalculateStats(nil)
	assert.Zero(t, s.Wins)
	assert.Zero(t, s.WinRate)
}

func TestCalculateSharpeRatio(t *testing.T) {
	assert.Zero(t, calculateSharpeRatio([]float64{100}))
	assert.Zero(t, calculateSharpeRatio([]float64{100, 100, 100}))
	assert.Greater(t, calculateSharpeRatio([]float64{100, 120, 80, 110}), 0.0)
}

func TestCalculateMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, calculateMaxDrawdown([]float64{10, 20, 30}))
	assert.Equal(t, 50.0, calculateMaxDrawdown([]float64{-50}))
}
