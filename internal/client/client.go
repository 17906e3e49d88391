// Package client requests backtests from a remote optlab backend.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/dto"
	"github.com/newthinker/optlab/internal/query"
)

const (
	defaultTimeout = 2 * time.Minute
	maxBodyBytes   = 16 << 20
)

// Client issues GET /backtest against a backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the request URL for req
func (c *Client) URL(req query.BacktestRequest) (string, error) {
	qs, err := req.QueryString()
	if err != nil {
		return "", err
	}
	return c.baseURL + "/backtest?" + qs, nil
}

// Run requests one backtest. A body carrying an error field is returned as
// a response with Error set. Transport and decode failures return
// core.ErrBackendUnavailable.
func (c *Client) Run(ctx context.Context, req query.BacktestRequest) (*dto.BacktestResponse, error) {
	url, err := c.URL(req)
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidParams, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrBackendUnavailable, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("backend request failed", zap.String("url", url), zap.Error(err))
		return nil, core.WrapError(core.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, core.WrapError(core.ErrBackendUnavailable, fmt.Errorf("read body: %w", err))
	}

	var result dto.BacktestResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Warn("backend returned non-JSON body",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return nil, core.WrapError(core.ErrBackendUnavailable, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err))
	}

	if resp.StatusCode != http.StatusOK && !result.Failed() {
		return nil, core.WrapError(core.ErrBackendUnavailable, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	c.logger.Debug("backend request complete",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	return &result, nil
}
