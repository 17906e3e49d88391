// Package query collects backtest parameters and converts them to and from
// the GET /backtest query string.
package query

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/schema"

	"github.com/newthinker/optlab/internal/backtest"
	"github.com/newthinker/optlab/internal/core"
)

// BacktestRequest is the set of parameters a user submits
type BacktestRequest struct {
	Strategy core.Strategy `schema:"strategy" json:"strategy"`
	Ticker   string        `schema:"ticker" json:"ticker"`
	MinExp   int           `schema:"min_exp" json:"min_exp"`
	MaxExp   int           `schema:"max_exp" json:"max_exp"`
	Delta    float64       `schema:"delta" json:"delta"`
	Width    float64       `schema:"width" json:"width"`
	RiskFree *float64      `schema:"risk_free" json:"risk_free,omitempty"`
}

// Defaults returns the parameters used for any key the caller omits
func Defaults() BacktestRequest {
	return BacktestRequest{
		Strategy: core.StrategyCoveredCall,
		Ticker:   "MSFT",
		MinExp:   30,
		MaxExp:   90,
		Delta:    0.3,
		Width:    5,
	}
}

var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,10}(\.[A-Za-z]{1,4})?$`)

// keyOrder is the order parameters appear in an encoded query
var keyOrder = []string{"strategy", "ticker", "min_exp", "max_exp", "delta", "width", "risk_free"}

type wireQuery struct {
	Strategy string  `schema:"strategy"`
	Ticker   string  `schema:"ticker"`
	MinExp   int     `schema:"min_exp"`
	MaxExp   int     `schema:"max_exp"`
	Delta    float64 `schema:"delta"`
	Width    float64 `schema:"width,omitempty"`
}

var (
	decoder = newDecoder()
	encoder = newEncoder()
)

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

func newEncoder() *schema.Encoder {
	e := schema.NewEncoder()
	e.RegisterEncoder(float64(0), func(v reflect.Value) string {
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	})
	return e
}

// Decode reads parameters from a query string or form onto Defaults.
// Values that are present but not numbers are rejected.
func Decode(values url.Values) (BacktestRequest, error) {
	req := Defaults()
	if err := decoder.Decode(&req, values); err != nil {
		return req, core.WrapError(core.ErrInvalidParams, describeDecodeError(err))
	}
	req.Normalize()
	return req, nil
}

// Normalize trims and upper-cases the ticker and lower-cases the strategy
func (r *BacktestRequest) Normalize() {
	r.Ticker = strings.ToUpper(strings.TrimSpace(r.Ticker))
	r.Strategy = core.Strategy(strings.ToLower(strings.TrimSpace(string(r.Strategy))))
}

// Validate checks the request before it is sent or run
func (r BacktestRequest) Validate() error {
	if _, err := core.ParseStrategy(string(r.Strategy)); err != nil {
		return core.WrapError(core.ErrInvalidParams, fmt.Errorf("strategy: unknown %q", r.Strategy))
	}
	if !tickerPattern.MatchString(r.Ticker) {
		return core.WrapError(core.ErrInvalidParams, fmt.Errorf("ticker: invalid %q", r.Ticker))
	}
	if r.MinExp < 0 {
		return core.WrapError(core.ErrInvalidParams, fmt.Errorf("min_exp: must not be negative"))
	}
	if r.MaxExp < r.MinExp {
		return core.WrapError(core.ErrInvalidParams, fmt.Errorf("max_exp: must be at least min_exp"))
	}
	if d := math.Abs(r.Delta); !(d > 0 && d <= 1) {
		return core.WrapError(core.ErrInvalidParams, fmt.Errorf("delta: must be within (0, 1]"))
	}
	if r.Strategy == core.StrategyIronCondor && !(r.Width > 0 && !math.IsInf(r.Width, 0)) {
		return core.WrapError(core.ErrInvalidParams, fmt.Errorf("width: must be positive"))
	}
	if r.RiskFree != nil && (math.IsNaN(*r.RiskFree) || math.IsInf(*r.RiskFree, 0)) {
		return core.WrapError(core.ErrInvalidParams, fmt.Errorf("risk_free: must be a finite number"))
	}
	return nil
}

// Encode builds the query values. width is only sent for iron condors.
func (r BacktestRequest) Encode() (url.Values, error) {
	w := wireQuery{
		Strategy: string(r.Strategy),
		Ticker:   r.Ticker,
		MinExp:   r.MinExp,
		MaxExp:   r.MaxExp,
		Delta:    r.Delta,
	}
	if r.Strategy == core.StrategyIronCondor {
		w.Width = r.Width
	}

	values := url.Values{}
	if err := encoder.Encode(w, values); err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	if r.RiskFree != nil {
		values.Set("risk_free", strconv.FormatFloat(*r.RiskFree, 'f', -1, 64))
	}
	return values, nil
}

// QueryString encodes the request with keys in a fixed order
func (r BacktestRequest) QueryString() (string, error) {
	values, err := r.Encode()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, key := range keyOrder {
		v, ok := values[key]
		if !ok || len(v) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v[0]))
	}
	return b.String(), nil
}

// Params converts the request to engine parameters. defaultRiskFree is used
// when the request carries no risk-free rate.
func (r BacktestRequest) Params(defaultRiskFree float64) backtest.Params {
	rf := defaultRiskFree
	if r.RiskFree != nil {
		rf = *r.RiskFree
	}
	return backtest.Params{
		Strategy: r.Strategy,
		Ticker:   r.Ticker,
		MinExp:   r.MinExp,
		MaxExp:   r.MaxExp,
		Delta:    r.Delta,
		RiskFree: rf,
		Width:    r.Width,
	}
}

// Parameters is the summary echoed in results
func (r BacktestRequest) Parameters() string {
	return r.Params(0).Describe()
}

func describeDecodeError(err error) error {
	multi, ok := err.(schema.MultiError)
	if !ok {
		return err
	}
	keys := make([]string, 0, len(multi))
	for k := range multi {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Errorf("invalid value for %s", strings.Join(keys, ", "))
}
