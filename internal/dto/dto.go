// Package dto holds the JSON shapes exchanged between the form, the CLI and
// the backtest backend.
package dto

// ChartData is one bar per trade: entry date and rounded profit
type ChartData struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// Stats summarises trade outcomes
type Stats struct {
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`       // percent of trades with positive profit
	AverageProfit float64 `json:"average_profit"` // dollars per trade
	BestTrade     float64 `json:"best_trade"`
	WorstTrade    float64 `json:"worst_trade"`
	MaxDrawdown   float64 `json:"max_drawdown"` // dollars, peak to trough of cumulative profit
	SharpeRatio   float64 `json:"sharpe_ratio"` // annualised from weekly trade profits
}

// BacktestResponse is the body of GET /backtest
type BacktestResponse struct {
	Ticker      string    `json:"ticker"`
	Parameters  string    `json:"parameters"`
	TotalProfit float64   `json:"total_profit"`
	TradeCount  int       `json:"trade_count"`
	TradeLog    []string  `json:"trade_log"`
	ChartData   ChartData `json:"chart_data"`
	Stats       *Stats    `json:"stats,omitempty"`
	Error       string    `json:"error,omitempty"`
	Code        string    `json:"code,omitempty"`
}

// Failed reports whether the backend returned an error field
func (r *BacktestResponse) Failed() bool {
	return r.Error != ""
}

// ErrorResponse builds a body carrying only an error
func ErrorResponse(code, message string) *BacktestResponse {
	return &BacktestResponse{
		TradeLog:  []string{},
		ChartData: ChartData{Labels: []string{}, Data: []float64{}},
		Error:     message,
		Code:      code,
	}
}
