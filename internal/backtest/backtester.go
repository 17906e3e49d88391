package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/optlab/internal/collector"
	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/strategy"
)

const defaultLookbackYears = 2

// Backtester replays weekly option entries against daily history
type Backtester struct {
	provider      collector.Provider
	strategies    *strategy.Registry
	logger        *zap.Logger
	now           func() time.Time
	lookbackYears int
	entryWeekday  time.Weekday
}

// Option configures a Backtester
type Option func(*Backtester)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(b *Backtester) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides the time source used to anchor the lookback window
func WithClock(now func() time.Time) Option {
	return func(b *Backtester) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLookbackYears sets how many years of history are replayed
func WithLookbackYears(years int) Option {
	return func(b *Backtester) {
		if years > 0 {
			b.lookbackYears = years
		}
	}
}

// WithEntryWeekday sets the weekday on which positions are opened
func WithEntryWeekday(d time.Weekday) Option {
	return func(b *Backtester) {
		b.entryWeekday = d
	}
}

// New creates a new Backtester
func New(provider collector.Provider, strategies *strategy.Registry, opts ...Option) *Backtester {
	b := &Backtester{
		provider:      provider,
		strategies:    strategies,
		logger:        zap.NewNop(),
		now:           time.Now,
		lookbackYears: defaultLookbackYears,
		entryWeekday:  time.Monday,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes a backtest with the given parameters
func (b *Backtester) Run(ctx context.Context, p Params) (*Result, error) {
	strat, ok := b.strategies.Get(p.Strategy)
	if !ok {
		return nil, core.WrapError(core.ErrUnknownStrategy, fmt.Errorf("%q", p.Strategy))
	}
	p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))

	end := core.DateOnly(b.now())
	start := end.AddDate(0, 0, -365*b.lookbackYears)

	history, err := b.provider.FetchHistory(ctx, p.Ticker, start, end)
	if err != nil {
		return nil, wrapCollectorErr("fetch history", err)
	}
	if len(history) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no history for %s", p.Ticker))
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date.Before(history[j].Date)
	})

	expirations, err := b.provider.Expirations(ctx, p.Ticker)
	if err != nil {
		return nil, wrapCollectorErr("fetch expirations", err)
	}
	sort.Slice(expirations, func(i, j int) bool {
		return expirations[i].Before(expirations[j])
	})

	result := &Result{
		Params:    p,
		StartDate: history[0].Date,
		EndDate:   history[len(history)-1].Date,
	}

	var total float64
	var attempted, failed int
	for _, bar := range history {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if bar.Date.Weekday() != b.entryWeekday {
			continue
		}

		exp, days, ok := pickExpiration(expirations, bar.Date, p.MinExp, p.MaxExp)
		if !ok {
			continue
		}

		attempted++
		chain, err := b.provider.FetchChain(ctx, p.Ticker, exp)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			failed++
			b.logger.Warn("skipping week, chain unavailable",
				zap.String("ticker", p.Ticker),
				zap.Time("entry", bar.Date),
				zap.Time("expiration", exp),
				zap.Error(err))
			continue
		}

		setup := strategy.Setup{
			Date:        bar.Date,
			Expiration:  exp,
			DaysToExp:   days,
			Spot:        bar.Close,
			Settlement:  nearestClose(history, exp),
			RiskFree:    p.RiskFree,
			TargetDelta: absDelta(p.Delta),
			Width:       p.Width,
			Chain:       chain,
		}

		trade, ok := strat.Evaluate(setup)
		if !ok {
			continue
		}
		total += trade.Profit
		result.Trades = append(result.Trades, *trade)
	}

	if attempted > 0 && failed == attempted {
		return nil, core.WrapError(core.ErrCollectorFailed,
			fmt.Errorf("all %d option chain requests failed for %s", attempted, p.Ticker))
	}

	result.TotalProfit = Round2(total)
	result.Stats = CalculateStats(result.Trades)

	b.logger.Info("backtest complete",
		zap.String("strategy", string(p.Strategy)),
		zap.String("ticker", p.Ticker),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("total_profit", result.TotalProfit))

	return result, nil
}

// pickExpiration returns the first sorted expiration strictly after entry
// whose day distance lies in [minDays, maxDays].
func pickExpiration(expirations []time.Time, entry time.Time, minDays, maxDays int) (time.Time, int, bool) {
	entry = core.DateOnly(entry)
	for _, exp := range expirations {
		exp = core.DateOnly(exp)
		if !exp.After(entry) {
			continue
		}
		days := int(exp.Sub(entry).Hours() / 24)
		if days >= minDays && days <= maxDays {
			return exp, days, true
		}
	}
	return time.Time{}, 0, false
}

// nearestClose returns the close of the bar closest to target. On a tie the
// later bar wins. history must be sorted ascending and non-empty.
func nearestClose(history []core.OHLCV, target time.Time) float64 {
	i := sort.Search(len(history), func(i int) bool {
		return !history[i].Date.Before(target)
	})
	switch {
	case i == 0:
		return history[0].Close
	case i == len(history):
		return history[len(history)-1].Close
	}
	before := target.Sub(history[i-1].Date)
	after := history[i].Date.Sub(target)
	if before < after {
		return history[i-1].Close
	}
	return history[i].Close
}

func absDelta(d float64) float64 {
	if d < 0 {
		return -d
	}
	return d
}

func wrapCollectorErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return err
	}
	return core.WrapError(core.ErrCollectorFailed, fmt.Errorf("%s: %w", op, err))
}
