// Package pricing implements Black-Scholes valuation for European options
// on a non-dividend-paying underlying.
package pricing

import (
	"errors"
	"math"

	"github.com/newthinker/optlab/internal/core"
)

// ErrInvalidInput is returned when a model input is non-positive or not finite.
var ErrInvalidInput = errors.New("invalid black-scholes input")

// NormCDF is the standard normal cumulative distribution function
func NormCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// D1 computes the d1 term. t is in years.
func D1(S, K, t, r, sigma float64) (float64, error) {
	if !valid(S, K, t, r, sigma) {
		return 0, ErrInvalidInput
	}
	return (math.Log(S/K) + (r+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t)), nil
}

// Delta returns the analytical delta: N(d1) for calls, N(d1)-1 for puts.
func Delta(flag core.OptionType, S, K, t, r, sigma float64) (float64, error) {
	d1, err := D1(S, K, t, r, sigma)
	if err != nil {
		return 0, err
	}
	if flag == core.Put {
		return NormCDF(d1) - 1, nil
	}
	return NormCDF(d1), nil
}

// Price returns the theoretical option value.
func Price(flag core.OptionType, S, K, t, r, sigma float64) (float64, error) {
	d1, err := D1(S, K, t, r, sigma)
	if err != nil {
		return 0, err
	}
	d2 := d1 - sigma*math.Sqrt(t)
	discount := K * math.Exp(-r*t)
	if flag == core.Put {
		return discount*NormCDF(-d2) - S*NormCDF(-d1), nil
	}
	return S*NormCDF(d1) - discount*NormCDF(d2), nil
}

func valid(S, K, t, r, sigma float64) bool {
	for _, v := range []float64{S, K, t, r, sigma} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return S > 0 && K > 0 && t > 0 && sigma > 0
}
