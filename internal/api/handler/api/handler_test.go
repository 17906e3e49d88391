package api

import (
	"context"
	"errors"
	"sync"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/dto"
	"github.com/newthinker/optlab/internal/query"
)

type fakeRunner struct {
	mu   sync.Mutex
	got  []query.BacktestRequest
	resp *dto.BacktestResponse
	err  error
}

func (f *fakeRunner) Run(ctx context.Context, req query.BacktestRequest) (*dto.BacktestResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeRunner) last() query.BacktestRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.got[len(f.got)-1]
}

func sampleResponse() *dto.BacktestResponse {
	return &dto.BacktestResponse{
		Ticker:      "MSFT",
		Parameters:  "strategy=covered_call, min_exp=30, max_exp=90, delta=0.3",
		TotalProfit: 120,
		TradeCount:  1,
		TradeLog:    []string{"[2024-06-03] Trade: Sold Call on 2024-07-05 for $120.00 premium. Final Profit: $120.00. Outcome: Expired OTM"},
		ChartData:   dto.ChartData{Labels: []string{"2024-06-03"}, Data: []float64{120}},
	}
}

var errCollector = core.WrapError(core.ErrCollectorFailed, errors.New("yahoo: 503"))
