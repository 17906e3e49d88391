package collector

import (
	"context"
	"time"

	"github.com/newthinker/optlab/internal/core"
)

// HistoryProvider fetches daily bars
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]core.OHLCV, error)
}

// ChainProvider fetches listed option expirations and chains
type ChainProvider interface {
	// Expirations returns listed expiration dates in ascending order
	Expirations(ctx context.Context, symbol string) ([]time.Time, error)
	FetchChain(ctx context.Context, symbol string, expiration time.Time) (*core.OptionChain, error)
}

// Provider is the market data source a backtest runs against
type Provider interface {
	Name() string
	HistoryProvider
	ChainProvider
}
