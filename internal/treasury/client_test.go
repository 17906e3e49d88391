package treasury

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClient_Rate(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Contains(t, r.URL.RawQuery, "Treasury%20Bills")
		w.Write([]byte(`{"data":[{"record_date":"2025-09-30","avg_interest_rate_amt":"4.250"}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Fallback: 0.05, MaxAge: time.Hour}, nil)

	assert.InDelta(t, 0.0425, c.Rate(context.Background()), 1e-12)
	assert.InDelta(t, 0.0425, c.Rate(context.Background()), 1e-12)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second call should reuse the cached rate")
}

func TestClient_Rate_FallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Fallback: 0.05}, nil)
	assert.Equal(t, 0.05, c.Rate(context.Background()))
}

func TestClient_Rate_BacksOffAfterFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Fallback: 0.03, RetryAfter: time.Hour}, nil)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.03, c.Rate(context.Background()))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "failed fetch should not be retried inside the window")
}

func TestClient_Rate_RetriesAfterWindow(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Write([]byte(`{"data":[]}`))
			return
		}
		w.Write([]byte(`{"data":[{"record_date":"2025-09-30","avg_interest_rate_amt":"4.000"}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Fallback: 0.03, RetryAfter: time.Millisecond}, nil)
	assert.Equal(t, 0.03, c.Rate(context.Background()))
	time.Sleep(5 * time.Millisecond)
	assert.InDelta(t, 0.04, c.Rate(context.Background()), 1e-12)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
