// Package treasury fetches the Treasury Bills average interest rate used as
// the risk-free rate in option pricing.
package treasury

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/newthinker/optlab/internal/platform/httpclient"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.fiscaldata.treasury.gov/services/api/fiscal_service"

// Client fetches the latest T-Bill rate and remembers the last good value
type Client struct {
	http          *httpclient.Client
	baseURL       string
	fallback      float64
	maxAge        time.Duration
	retryAfter    time.Duration
	logger        *zap.Logger
	mu            sync.Mutex
	lastKnownRate float64
	lastFetchTime time.Time
	lastFailure   time.Time
}

// Config holds treasury client settings
type Config struct {
	BaseURL    string
	Fallback   float64       // used until a fetch succeeds
	MaxAge     time.Duration // how long a fetched rate is reused
	RetryAfter time.Duration // how long a failed fetch suppresses fetching
	Timeout    time.Duration
}

type response struct {
	Data []struct {
		RecordDate            string `json:"record_date"`
		AvgInterestRateAmount string `json:"avg_interest_rate_amt"`
	} `json:"data"`
}

// New creates a treasury client
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if cfg.RetryAfter == 0 {
		cfg.RetryAfter = 5 * time.Minute
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		http:          httpclient.New(httpclient.Options{Timeout: cfg.Timeout, RequestsPerSec: 1, MaxRetries: 2}),
		baseURL:       cfg.BaseURL,
		fallback:      cfg.Fallback,
		maxAge:        cfg.MaxAge,
		retryAfter:    cfg.RetryAfter,
		logger:        logger,
		lastKnownRate: cfg.Fallback,
	}
}

// Rate returns a fresh or recently fetched rate as a decimal (3.98% -> 0.0398).
// On fetch failure it returns the last known rate, or the fallback, and does
// not fetch again until RetryAfter has passed.
func (c *Client) Rate(ctx context.Context) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastFetchTime.IsZero() && time.Since(c.lastFetchTime) < c.maxAge {
		return c.lastKnownRate
	}
	if !c.lastFailure.IsZero() && time.Since(c.lastFailure) < c.retryAfter {
		return c.lastKnownRate
	}

	rate, err := c.fetch(ctx)
	if err != nil {
		c.lastFailure = time.Now()
		c.logger.Warn("treasury rate fetch failed, using last known rate",
			zap.Float64("rate", c.lastKnownRate),
			zap.Error(err),
		)
		return c.lastKnownRate
	}

	c.lastKnownRate = rate
	c.lastFetchTime = time.Now()
	c.lastFailure = time.Time{}
	c.logger.Info("fetched treasury bill rate", zap.Float64("rate", rate))
	return rate
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/v2/accounting/od/avg_interest_rates?fields=avg_interest_rate_amt,record_date&filter=security_desc:eq:Treasury%%20Bills&sort=-record_date&page[size]=1", c.baseURL)

	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("fetching treasury rate: %w", err)
	}
	defer resp.Body.Close()

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding treasury response: %w", err)
	}
	if len(body.Data) == 0 {
		return 0, fmt.Errorf("no treasury rate data returned")
	}

	rateStr := body.Data[0].AvgInterestRateAmount
	rate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing rate %s: %w", rateStr, err)
	}
	return rate / 100.0, nil
}
