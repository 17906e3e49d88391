package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/notifier"
)

func TestWebhook_Name(t *testing.T) {
	w, err := New("http://example.com/hook", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Name() != "webhook" {
		t.Errorf("expected 'webhook', got %s", w.Name())
	}
}

func TestWebhook_RequiresURL(t *testing.T) {
	if _, err := New("", nil, 0); err == nil {
		t.Error("expected error for missing URL")
	}
}

func TestWebhook_Notify(t *testing.T) {
	var received notifier.Event
	var auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	w, _ := New(server.URL, map[string]string{"Authorization": "Bearer token"}, time.Second)

	err := w.Notify(context.Background(), notifier.Event{
		Type:        notifier.EventJobCompleted,
		JobID:       "j1",
		Strategy:    core.StrategyCoveredCall,
		Ticker:      "MSFT",
		TotalProfit: 120,
		TradeCount:  1,
		FinishedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.Ticker != "MSFT" || received.TotalProfit != 120 {
		t.Errorf("unexpected payload: %+v", received)
	}
	if received.Type != notifier.EventJobCompleted {
		t.Errorf("expected job.completed, got %s", received.Type)
	}
	if auth != "Bearer token" {
		t.Errorf("expected custom header, got %q", auth)
	}
}

func TestWebhook_Notify_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w, _ := New(server.URL, nil, time.Second)
	if err := w.Notify(context.Background(), notifier.Event{JobID: "j1"}); err == nil {
		t.Error("expected error for 500 response")
	}
}
