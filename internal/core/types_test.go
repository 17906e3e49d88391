package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies() {
		got, err := ParseStrategy(string(s))
		if err != nil {
			t.Fatalf("ParseStrategy(%s) error = %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStrategy(%s) = %s", s, got)
		}
	}

	_, err := ParseStrategy("strangle")
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestOptionContract_HasQuote(t *testing.T) {
	c := OptionContract{Strike: 100, Bid: 1.2, Ask: math.NaN(), ImpliedVolatility: 0.25}
	if !c.HasQuote() {
		t.Error("expected one-sided quote to be present")
	}
	if c.HasTwoSidedQuote() {
		t.Error("expected missing ask to fail two-sided check")
	}

	c.Bid = math.NaN()
	if c.HasQuote() {
		t.Error("expected missing bid to fail")
	}
}

func TestDateOnly(t *testing.T) {
	ts := time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC)
	want := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if !DateOnly(ts).Equal(want) {
		t.Errorf("DateOnly = %v, want %v", DateOnly(ts), want)
	}
}
