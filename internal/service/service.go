// Package service runs validated backtest requests in-process.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/optlab/internal/backtest"
	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/dto"
	"github.com/newthinker/optlab/internal/query"
)

// Runner is anything that turns a request into a response: the in-process
// Service or a remote backend client
type Runner interface {
	Run(ctx context.Context, req query.BacktestRequest) (*dto.BacktestResponse, error)
}

// Engine runs backtests
type Engine interface {
	Run(ctx context.Context, p backtest.Params) (*backtest.Result, error)
}

// RateSource supplies the risk-free rate when a request omits it
type RateSource interface {
	Rate(ctx context.Context) float64
}

// StaticRate is a fixed risk-free rate
type StaticRate float64

// Rate returns the fixed rate
func (s StaticRate) Rate(context.Context) float64 { return float64(s) }

// Recorder receives run metrics
type Recorder interface {
	RecordBacktest(strategy, status string, duration float64)
	RecordTrade(strategy, outcome string)
}

// Service validates requests, resolves the risk-free rate and records metrics
type Service struct {
	engine  Engine
	rates   RateSource
	metrics Recorder
	logger  *zap.Logger
}

// New creates a Service. rates defaults to 5%; metrics may be nil.
func New(engine Engine, rates RateSource, metrics Recorder, logger *zap.Logger) *Service {
	if rates == nil {
		rates = StaticRate(0.05)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: engine, rates: rates, metrics: metrics, logger: logger}
}

// Run executes req and returns the wire response. Invalid requests return
// core.ErrInvalidParams before anything is fetched.
func (s *Service) Run(ctx context.Context, req query.BacktestRequest) (*dto.BacktestResponse, error) {
	result, err := s.RunResult(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Response(), nil
}

// RunResult is Run without the wire conversion
func (s *Service) RunResult(ctx context.Context, req query.BacktestRequest) (*backtest.Result, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var rf float64
	if req.RiskFree == nil {
		rf = s.rates.Rate(ctx)
	}
	params := req.Params(rf)

	start := time.Now()
	result, err := s.engine.Run(ctx, params)
	duration := time.Since(start)

	if err != nil {
		s.record(string(params.Strategy), statusOf(err), duration)
		s.logger.Warn("backtest failed",
			zap.String("strategy", string(params.Strategy)),
			zap.String("ticker", params.Ticker),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}

	s.record(string(params.Strategy), "success", duration)
	if s.metrics != nil {
		for _, t := range result.Trades {
			s.metrics.RecordTrade(string(t.Strategy), t.Outcome)
		}
	}
	return result, nil
}

func (s *Service) record(strategy, status string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordBacktest(strategy, status, d.Seconds())
	}
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, core.ErrNoData), errors.Is(err, core.ErrSymbolNotFound):
		return "no_data"
	default:
		return "error"
	}
}
