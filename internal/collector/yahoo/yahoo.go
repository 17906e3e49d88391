package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/optlab/internal/collector"
	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/platform/httpclient"
	"go.uber.org/zap"
)

const (
	defaultChartURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultOptionsURL = "https://query2.finance.yahoo.com/v7/finance/options"
	defaultCookieURL  = "https://fc.yahoo.com"
	defaultCrumbURL   = "https://query2.finance.yahoo.com/v1/test/getcrumb"
	userAgent         = "Mozilla/5.0 (compatible; optlab/1.0)"
)

// validSymbol matches stock symbols like AAPL, MSFT, BRK.B, 0700.HK
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9]{1,10}(\.[A-Za-z]{1,4})?$`)

// ValidateSymbol checks if a symbol has valid format
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Config holds Yahoo collector settings
type Config struct {
	ChartURL       string
	OptionsURL     string
	CookieURL      string // sets the session cookie the crumb is bound to
	CrumbURL       string
	Timeout        time.Duration
	RequestsPerSec float64
	MaxRetries     int
}

// Yahoo implements the Yahoo Finance collector
type Yahoo struct {
	client     *httpclient.Client
	chartURL   string
	optionsURL string
	cookieURL  string
	crumbURL   string
	logger     *zap.Logger

	mu    sync.Mutex
	crumb string

	// OnRequest, when set, observes every upstream call
	OnRequest func(endpoint, status string)
}

var _ collector.Provider = (*Yahoo)(nil)

// New creates a new Yahoo collector
func New(cfg Config, logger *zap.Logger) *Yahoo {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChartURL == "" {
		cfg.ChartURL = defaultChartURL
	}
	if cfg.OptionsURL == "" {
		cfg.OptionsURL = defaultOptionsURL
	}
	if cfg.CookieURL == "" {
		cfg.CookieURL = defaultCookieURL
	}
	if cfg.CrumbURL == "" {
		cfg.CrumbURL = defaultCrumbURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := httpclient.New(httpclient.Options{
		Timeout:        cfg.Timeout,
		RequestsPerSec: cfg.RequestsPerSec,
		MaxRetries:     cfg.MaxRetries,
		UserAgent:      userAgent,
	})
	// cookiejar.New only fails on a bad PublicSuffixList; there is none
	client.HTTPClient.Jar, _ = cookiejar.New(nil)
	return &Yahoo{
		client:     client,
		chartURL:   strings.TrimSuffix(cfg.ChartURL, "/"),
		optionsURL: strings.TrimSuffix(cfg.OptionsURL, "/"),
		cookieURL:  cfg.CookieURL,
		crumbURL:   cfg.CrumbURL,
		logger:     logger,
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	// Share classes: BRK.B -> BRK-B
	if i := strings.IndexByte(symbol, '.'); i > 0 && len(symbol)-i == 2 {
		return symbol[:i] + "-" + symbol[i+1:]
	}
	return symbol
}

// FetchHistory fetches daily OHLCV bars between start and end
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]core.OHLCV, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d",
		y.chartURL, url.PathEscape(y.toYahooSymbol(symbol)), start.Unix(), end.Unix())

	var result chartResponse
	if err := y.getJSON(ctx, "chart", u, &result); err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("no data for symbol: %s", symbol))
	}

	r := result.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return []core.OHLCV{}, nil
	}
	quotes := r.Indicators.Quote[0]
	offset := int64(r.Meta.GMTOffset)

	data := make([]core.OHLCV, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(quotes.Close) || quotes.Close[i] == nil {
			continue // Skip missing data
		}
		bar := core.OHLCV{
			Symbol: symbol,
			Close:  *quotes.Close[i],
			Date:   core.DateOnly(time.Unix(ts+offset, 0).UTC()),
		}
		bar.Open = valueAt(quotes.Open, i, bar.Close)
		bar.High = valueAt(quotes.High, i, bar.Close)
		bar.Low = valueAt(quotes.Low, i, bar.Close)
		if i < len(quotes.Volume) && quotes.Volume[i] != nil {
			bar.Volume = *quotes.Volume[i]
		}
		data = append(data, bar)
	}

	y.logger.Debug("fetched history",
		zap.String("symbol", symbol),
		zap.Int("bars", len(data)),
	)
	return data, nil
}

// Expirations returns the listed option expirations for symbol
func (y *Yahoo) Expirations(ctx context.Context, symbol string) ([]time.Time, error) {
	r, err := y.fetchOptions(ctx, symbol, url.Values{})
	if err != nil {
		return nil, err
	}

	exps := make([]time.Time, len(r.ExpirationDates))
	for i, e := range r.ExpirationDates {
		exps[i] = core.DateOnly(time.Unix(e, 0).UTC())
	}
	return exps, nil
}

// FetchChain returns calls and puts for one expiration
func (y *Yahoo) FetchChain(ctx context.Context, symbol string, expiration time.Time) (*core.OptionChain, error) {
	params := url.Values{}
	params.Set("date", fmt.Sprint(core.DateOnly(expiration).Unix()))
	r, err := y.fetchOptions(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	chain := &core.OptionChain{
		Symbol:     symbol,
		Expiration: core.DateOnly(expiration),
		Underlying: r.Quote.RegularMarketPrice,
	}
	if len(r.Options) == 0 {
		return chain, nil
	}

	chain.Calls = toContracts(r.Options[0].Calls, core.Call, chain.Expiration)
	chain.Puts = toContracts(r.Options[0].Puts, core.Put, chain.Expiration)

	y.logger.Debug("fetched option chain",
		zap.String("symbol", symbol),
		zap.String("expiration", chain.Expiration.Format(core.DateLayout)),
		zap.Int("calls", len(chain.Calls)),
		zap.Int("puts", len(chain.Puts)),
	)
	return chain, nil
}

// fetchOptions calls the options endpoint with a session crumb. A 401
// means the crumb went stale; it is refreshed and the call retried once.
func (y *Yahoo) fetchOptions(ctx context.Context, symbol string, params url.Values) (*optionResult, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	var result optionsResponse
	err := y.getJSON(ctx, "options", y.optionsRequestURL(ctx, symbol, params, false), &result)
	if httpclient.StatusCode(err) == http.StatusUnauthorized {
		err = y.getJSON(ctx, "options", y.optionsRequestURL(ctx, symbol, params, true), &result)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching options: %w", err)
	}

	if result.OptionChain.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.OptionChain.Error.Description)
	}
	if len(result.OptionChain.Result) == 0 {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("no options for symbol: %s", symbol))
	}
	return &result.OptionChain.Result[0], nil
}

func (y *Yahoo) optionsRequestURL(ctx context.Context, symbol string, params url.Values, refresh bool) string {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	if crumb := y.sessionCrumb(ctx, refresh); crumb != "" {
		q.Set("crumb", crumb)
	}
	u := y.optionsURL + "/" + url.PathEscape(y.toYahooSymbol(symbol))
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// sessionCrumb returns the cached crumb, fetching it on first use or when
// refresh is set. Failures are logged and the request goes out without one.
func (y *Yahoo) sessionCrumb(ctx context.Context, refresh bool) string {
	y.mu.Lock()
	defer y.mu.Unlock()

	if y.crumb != "" && !refresh {
		return y.crumb
	}
	crumb, err := y.fetchCrumb(ctx)
	if err != nil {
		y.logger.Warn("yahoo crumb fetch failed", zap.Error(err))
		y.crumb = ""
		return ""
	}
	y.crumb = crumb
	return crumb
}

func (y *Yahoo) fetchCrumb(ctx context.Context) (string, error) {
	// only the Set-Cookie matters here; the page itself is usually a 404
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.cookieURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	if resp, err := y.client.HTTPClient.Do(req); err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	resp, err := y.client.Get(ctx, y.crumbURL)
	if err != nil {
		return "", fmt.Errorf("fetching crumb: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", fmt.Errorf("reading crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.ContainsAny(crumb, "<{ ") {
		return "", fmt.Errorf("unexpected crumb response")
	}
	return crumb, nil
}

func (y *Yahoo) getJSON(ctx context.Context, endpoint, u string, dst any) error {
	resp, err := y.client.Get(ctx, u)
	if err != nil {
		y.observe(endpoint, "error")
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		y.observe(endpoint, "decode_error")
		return fmt.Errorf("decoding response: %w", err)
	}
	y.observe(endpoint, "ok")
	return nil
}

func (y *Yahoo) observe(endpoint, status string) {
	if y.OnRequest != nil {
		y.OnRequest(endpoint, status)
	}
}

func toContracts(in []optionQuote, typ core.OptionType, exp time.Time) []core.OptionContract {
	out := make([]core.OptionContract, 0, len(in))
	for _, q := range in {
		c := core.OptionContract{
			ContractSymbol:    q.ContractSymbol,
			Type:              typ,
			Strike:            deref(q.Strike),
			Bid:               deref(q.Bid),
			Ask:               deref(q.Ask),
			LastPrice:         deref(q.LastPrice),
			ImpliedVolatility: deref(q.ImpliedVolatility),
			Expiration:        exp,
		}
		if q.Volume != nil {
			c.Volume = *q.Volume
		}
		if q.OpenInterest != nil {
			c.OpenInterest = *q.OpenInterest
		}
		out = append(out, c)
	}
	return out
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func valueAt(vals []*float64, i int, fallback float64) float64 {
	if i < len(vals) && vals[i] != nil {
		return *vals[i]
	}
	return fallback
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol    string `json:"symbol"`
	GMTOffset int    `json:"gmtoffset"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type optionsResponse struct {
	OptionChain struct {
		Result []optionResult `json:"result"`
		Error  *apiError      `json:"error"`
	} `json:"optionChain"`
}

type optionResult struct {
	UnderlyingSymbol string  `json:"underlyingSymbol"`
	ExpirationDates  []int64 `json:"expirationDates"`
	Quote            struct {
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	} `json:"quote"`
	Options []struct {
		ExpirationDate int64         `json:"expirationDate"`
		Calls          []optionQuote `json:"calls"`
		Puts           []optionQuote `json:"puts"`
	} `json:"options"`
}

type optionQuote struct {
	ContractSymbol    string   `json:"contractSymbol"`
	Strike            *float64 `json:"strike"`
	Bid               *float64 `json:"bid"`
	Ask               *float64 `json:"ask"`
	LastPrice         *float64 `json:"lastPrice"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
	Volume            *int64   `json:"volume"`
	OpenInterest      *int64   `json:"openInterest"`
}
