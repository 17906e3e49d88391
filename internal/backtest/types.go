package backtest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/dto"
	"github.com/newthinker/optlab/internal/strategy"
)

// Params configures one backtest run
type Params struct {
	Strategy core.Strategy
	Ticker   string
	MinExp   int     // minimum days to expiration
	MaxExp   int     // maximum days to expiration
	Delta    float64 // target delta; sign is ignored
	RiskFree float64
	Width    float64 // iron condor wing width
}

// Describe renders the parameter summary echoed back to the caller
func (p Params) Describe() string {
	return fmt.Sprintf("strategy=%s, min_exp=%d, max_exp=%d, delta=%s",
		p.Strategy, p.MinExp, p.MaxExp, FormatFloat(p.Delta))
}

// FormatFloat prints the shortest representation, keeping a trailing ".0"
// on integral values (1 -> "1.0", 0.3 -> "0.3").
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Result holds the complete backtest output
type Result struct {
	Params      Params
	StartDate   time.Time
	EndDate     time.Time
	Trades      []strategy.Trade
	TotalProfit float64 // rounded to cents
	Stats       dto.Stats
}

// TradeCount returns the number of executed trades
func (r *Result) TradeCount() int {
	return len(r.Trades)
}

// Response converts the result to its wire shape
func (r *Result) Response() *dto.BacktestResponse {
	resp := &dto.BacktestResponse{
		Ticker:      r.Params.Ticker,
		Parameters:  r.Params.Describe(),
		TotalProfit: r.TotalProfit,
		TradeCount:  len(r.Trades),
		TradeLog:    make([]string, 0, len(r.Trades)),
		ChartData: dto.ChartData{
			Labels: make([]string, 0, len(r.Trades)),
			Data:   make([]float64, 0, len(r.Trades)),
		},
	}
	for _, t := range r.Trades {
		resp.TradeLog = append(resp.TradeLog, t.LogLine())
		resp.ChartData.Labels = append(resp.ChartData.Labels, t.EntryDate.Format(core.DateLayout))
		resp.ChartData.Data = append(resp.ChartData.Data, Round2(t.Profit))
	}
	stats := r.Stats
	resp.Stats = &stats
	return resp
}
