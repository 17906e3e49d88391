package notifier

import (
	"context"
	"time"

	"github.com/newthinker/optlab/internal/core"
)

// Event types
const (
	EventJobCompleted = "job.completed"
	EventJobFailed    = "job.failed"
)

// Event describes a finished backtest job
type Event struct {
	Type        string        `json:"type"`
	JobID       string        `json:"job_id"`
	Strategy    core.Strategy `json:"strategy"`
	Ticker      string        `json:"ticker"`
	Parameters  string        `json:"parameters"`
	TotalProfit float64       `json:"total_profit"`
	TradeCount  int           `json:"trade_count"`
	ArchiveKey  string        `json:"archive_key,omitempty"`
	ErrorCode   string        `json:"error_code,omitempty"`
	Error       string        `json:"error,omitempty"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// Notifier delivers job events
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Notify delivers one event
	Notify(ctx context.Context, event Event) error
}
