package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/newthinker/optlab/internal/core"
	gocache "github.com/patrickmn/go-cache"
)

// Cached memoises expirations and chains of an underlying Provider. Weekly
// entries in a backtest often resolve to the same listed expiration, so one
// chain download serves many rows.
type Cached struct {
	Provider
	cache *gocache.Cache
}

// NewCached wraps p with a TTL cache
func NewCached(p Provider, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cached{
		Provider: p,
		cache:    gocache.New(ttl, 2*ttl),
	}
}

// Name returns the wrapped provider's name
func (c *Cached) Name() string {
	return c.Provider.Name()
}

// Expirations returns cached expirations when available
func (c *Cached) Expirations(ctx context.Context, symbol string) ([]time.Time, error) {
	key := "exp:" + symbol
	if v, ok := c.cache.Get(key); ok {
		return v.([]time.Time), nil
	}

	exps, err := c.Provider.Expirations(ctx, symbol)
	if err != nil {
		return nil, err
	}
	sorted := make([]time.Time, len(exps))
	copy(sorted, exps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	c.cache.SetDefault(key, sorted)
	return sorted, nil
}

// FetchChain returns a cached chain when available
func (c *Cached) FetchChain(ctx context.Context, symbol string, expiration time.Time) (*core.OptionChain, error) {
	key := fmt.Sprintf("chain:%s:%s", symbol, expiration.Format(core.DateLayout))
	if v, ok := c.cache.Get(key); ok {
		return v.(*core.OptionChain), nil
	}

	chain, err := c.Provider.FetchChain(ctx, symbol, expiration)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, chain)
	return chain, nil
}

// Flush drops all cached entries
func (c *Cached) Flush() {
	c.cache.Flush()
}
