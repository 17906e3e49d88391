package backtest

import "github.com/shopspring/decimal"

// exactExp asks decimal for every fractional digit of the binary value
const exactExp = -1074

// Round2 rounds the exact binary value of v to cents, ties to even
func Round2(v float64) float64 {
	return decimal.NewFromFloatWithExponent(v, exactExp).RoundBank(2).InexactFloat64()
}
