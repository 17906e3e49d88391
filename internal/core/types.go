package core

import (
	"fmt"
	"math"
	"time"
)

// Strategy names a short-premium options strategy
type Strategy string

const (
	StrategyCoveredCall    Strategy = "covered_call"
	StrategyCashSecuredPut Strategy = "cash_secured_put"
	StrategyIronCondor     Strategy = "iron_condor"
)

// Strategies lists every supported strategy in display order
func Strategies() []Strategy {
	return []Strategy{StrategyCoveredCall, StrategyCashSecuredPut, StrategyIronCondor}
}

// ParseStrategy converts a wire name to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", WrapError(ErrUnknownStrategy, fmt.Errorf("%q", s))
}

// Label returns a human readable strategy name
func (s Strategy) Label() string {
	switch s {
	case StrategyCoveredCall:
		return "Covered Call"
	case StrategyCashSecuredPut:
		return "Cash-Secured Put"
	case StrategyIronCondor:
		return "Iron Condor"
	default:
		return string(s)
	}
}

// OptionType is call or put
type OptionType byte

const (
	Call OptionType = 'c'
	Put  OptionType = 'p'
)

func (t OptionType) String() string {
	if t == Put {
		return "put"
	}
	return "call"
}

// OHLCV represents a daily bar. Date is the exchange-local calendar day at
// midnight UTC.
type OHLCV struct {
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Date   time.Time
}

// OptionContract is a single listed contract. Quote fields the venue did
// not report are NaN.
type OptionContract struct {
	ContractSymbol    string
	Type              OptionType
	Strike            float64
	Bid               float64
	Ask               float64
	LastPrice         float64
	ImpliedVolatility float64
	Volume            int64
	OpenInterest      int64
	Expiration        time.Time
}

// HasQuote reports whether the bid, strike and implied volatility are present.
func (c OptionContract) HasQuote() bool {
	return present(c.Strike) && present(c.Bid) && present(c.ImpliedVolatility)
}

// HasTwoSidedQuote additionally requires an ask.
func (c OptionContract) HasTwoSidedQuote() bool {
	return c.HasQuote() && present(c.Ask)
}

func present(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// OptionChain holds calls and puts for one expiration
type OptionChain struct {
	Symbol     string
	Expiration time.Time
	Underlying float64
	Calls      []OptionContract
	Puts       []OptionContract
}

// DateOnly truncates t to its calendar day in UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"
