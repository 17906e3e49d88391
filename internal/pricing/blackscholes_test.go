package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/newthinker/optlab/internal/core"
)

func TestNormCDF(t *testing.T) {
	tests := []struct {
		x    float64
		want float64
	}{
		{0, 0.5},
		{1.959963985, 0.975},
		{-1.959963985, 0.025},
	}
	for _, tc := range tests {
		if got := NormCDF(tc.x); math.Abs(got-tc.want) > 1e-6 {
			t.Errorf("NormCDF(%v) = %v, want %v", tc.x, got, tc.want)
		}
	}
}

func TestDelta_KnownValues(t *testing.T) {
	// S=100, K=100, t=1, r=5%, sigma=20%: d1 = 0.35
	call, err := Delta(core.Call, 100, 100, 1, 0.05, 0.2)
	if err != nil {
		t.Fatalf("Delta() error = %v", err)
	}
	if math.Abs(call-0.636831) > 1e-5 {
		t.Errorf("call delta = %v, want 0.636831", call)
	}

	put, err := Delta(core.Put, 100, 100, 1, 0.05, 0.2)
	if err != nil {
		t.Fatalf("Delta() error = %v", err)
	}
	if math.Abs(put-(call-1)) > 1e-12 {
		t.Errorf("put delta = %v, want call-1 = %v", put, call-1)
	}
}

func TestDelta_InvalidInputs(t *testing.T) {
	tests := []struct {
		name              string
		S, K, T, r, sigma float64
	}{
		{"zero sigma", 100, 100, 1, 0.05, 0},
		{"negative time", 100, 100, -1, 0.05, 0.2},
		{"zero strike", 100, 0, 1, 0.05, 0.2},
		{"nan vol", 100, 100, 1, 0.05, math.NaN()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Delta(core.Call, tc.S, tc.K, tc.T, tc.r, tc.sigma)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestPrice_PutCallParity(t *testing.T) {
	S, K, T, r, sigma := 100.0, 95.0, 0.5, 0.03, 0.3
	call, err := Price(core.Call, S, K, T, r, sigma)
	if err != nil {
		t.Fatal(err)
	}
	put, err := Price(core.Put, S, K, T, r, sigma)
	if err != nil {
		t.Fatal(err)
	}
	parity := S - K*math.Exp(-r*T)
	if math.Abs((call-put)-parity) > 1e-9 {
		t.Errorf("call-put = %v, want %v", call-put, parity)
	}
}
