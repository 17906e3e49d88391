package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/optlab/internal/backtest"
	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/query"
	"github.com/newthinker/optlab/internal/strategy"
)

type fakeEngine struct {
	got    backtest.Params
	calls  int
	result *backtest.Result
	err    error
}

func (f *fakeEngine) Run(ctx context.Context, p backtest.Params) (*backtest.Result, error) {
	f.calls++
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	f.result.Params = p
	return f.result, nil
}

type fakeRecorder struct {
	backtests []string
	trades    []string
}

func (f *fakeRecorder) RecordBacktest(strategy, status string, duration float64) {
	f.backtests = append(f.backtests, strategy+":"+status)
}

func (f *fakeRecorder) RecordTrade(strategy, outcome string) {
	f.trades = append(f.trades, strategy+":"+outcome)
}

func oneTrade() *backtest.Result {
	entry := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	return &backtest.Result{
		Trades: []strategy.Trade{{
			Strategy:   core.StrategyCoveredCall,
			EntryDate:  entry,
			Expiration: entry.AddDate(0, 0, 32),
			Premium:    1.2,
			Profit:     120,
			Outcome:    "Expired OTM",
		}},
		TotalProfit: 120,
	}
}

func TestService_Run(t *testing.T) {
	engine := &fakeEngine{result: oneTrade()}
	rec := &fakeRecorder{}
	svc := New(engine, StaticRate(0.042), rec, nil)

	req := query.Defaults()
	req.Ticker = " msft "
	resp, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "MSFT", engine.got.Ticker)
	assert.Equal(t, 0.042, engine.got.RiskFree)
	assert.Equal(t, "MSFT", resp.Ticker)
	assert.Equal(t, 1, resp.TradeCount)
	assert.Equal(t, []string{"covered_call:success"}, rec.backtests)
	assert.Equal(t, []string{"covered_call:Expired OTM"}, rec.trades)
}

func TestService_ExplicitRiskFree(t *testing.T) {
	engine := &fakeEngine{result: oneTrade()}
	svc := New(engine, StaticRate(0.042), nil, nil)

	req := query.Defaults()
	rf := 0.01
	req.RiskFree = &rf
	_, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0.01, engine.got.RiskFree)
}

func TestService_ZeroRiskFree(t *testing.T) {
	t.Run("explicit zero", func(t *testing.T) {
		engine := &fakeEngine{result: oneTrade()}
		svc := New(engine, StaticRate(0.03), nil, nil)

		req := query.Defaults()
		rf := 0.0
		req.RiskFree = &rf
		_, err := svc.Run(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 0.0, engine.got.RiskFree)
	})

	t.Run("configured zero", func(t *testing.T) {
		engine := &fakeEngine{result: oneTrade()}
		svc := New(engine, StaticRate(0), nil, nil)

		_, err := svc.Run(context.Background(), query.Defaults())
		require.NoError(t, err)
		assert.Equal(t, 0.0, engine.got.RiskFree)
	})
}

func TestService_InvalidRequest(t *testing.T) {
	engine := &fakeEngine{result: oneTrade()}
	svc := New(engine, nil, nil, nil)

	req := query.Defaults()
	req.Delta = 2
	_, err := svc.Run(context.Background(), req)
	assert.True(t, errors.Is(err, core.ErrInvalidParams))
	assert.Zero(t, engine.calls)
}

func TestService_EngineError(t *testing.T) {
	engine := &fakeEngine{err: core.WrapError(core.ErrNoData, errors.New("empty"))}
	rec := &fakeRecorder{}
	svc := New(engine, nil, rec, nil)

	_, err := svc.Run(context.Background(), query.Defaults())
	assert.True(t, errors.Is(err, core.ErrNoData))
	assert.Equal(t, []string{"covered_call:no_data"}, rec.backtests)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, "cancelled", statusOf(context.Canceled))
	assert.Equal(t, "no_data", statusOf(core.ErrSymbolNotFound))
	assert.Equal(t, "error", statusOf(core.ErrCollectorFailed))
}
