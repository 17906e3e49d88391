package backtest

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/newthinker/optlab/internal/dto"
	"github.com/newthinker/optlab/internal/strategy"
)

// weeksPerYear annualises weekly entries
const weeksPerYear = 52

// CalculateStats computes performance statistics from trades
func CalculateStats(trades []strategy.Trade) dto.Stats {
	if len(trades) == 0 {
		return dto.Stats{}
	}

	profits := make(stats.Float64Data, len(trades))
	var wins, losses int
	for i, t := range trades {
		profits[i] = t.Profit
		if t.IsWin() {
			wins++
		} else {
			losses++
		}
	}

	mean, _ := stats.Mean(profits)
	best, _ := stats.Max(profits)
	worst, _ := stats.Min(profits)

	return dto.Stats{
		Wins:          wins,
		Losses:        losses,
		WinRate:       Round2(float64(wins) / float64(len(trades)) * 100),
		AverageProfit: Round2(mean),
		BestTrade:     Round2(best),
		WorstTrade:    Round2(worst),
		MaxDrawdown:   Round2(calculateMaxDrawdown(profits)),
		SharpeRatio:   Round2(calculateSharpeRatio(profits)),
	}
}

// calculateMaxDrawdown finds the largest peak-to-trough decline of the
// cumulative dollar profit, starting from zero
func calculateMaxDrawdown(profits []float64) float64 {
	var maxDD, peak, cumulative float64
	for _, p := range profits {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// calculateSharpeRatio computes the annualised mean-to-volatility ratio of
// per-trade profits. Assumes a zero risk-free return on the premium.
func calculateSharpeRatio(profits stats.Float64Data) float64 {
	if len(profits) < 2 {
		return 0
	}

	mean, err := stats.Mean(profits)
	if err != nil {
		return 0
	}
	stdDev, err := stats.StandardDeviationSample(profits)
	if err != nil || stdDev == 0 {
		return 0
	}

	return mean / stdDev * math.Sqrt(weeksPerYear)
}
