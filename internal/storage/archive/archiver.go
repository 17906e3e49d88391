package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/dto"
)

const rootPrefix = "backtests"

// Record is one archived backtest
type Record struct {
	JobID      string                `json:"job_id"`
	Strategy   core.Strategy         `json:"strategy"`
	ArchivedAt time.Time             `json:"archived_at"`
	Result     *dto.BacktestResponse `json:"result"`
}

// Entry describes an archived record by its key
type Entry struct {
	Key      string        `json:"key"`
	Ticker   string        `json:"ticker"`
	Date     string        `json:"date"`
	Strategy core.Strategy `json:"strategy"`
	JobID    string        `json:"job_id"`
}

// Key builds backtests/<TICKER>/<date>/<strategy>-<job id>.json
func Key(ticker string, date time.Time, strategy core.Strategy, jobID string) string {
	return path.Join(rootPrefix, strings.ToUpper(ticker), date.Format(core.DateLayout),
		fmt.Sprintf("%s-%s.json", strategy, jobID))
}

// ParseKey splits a key produced by Key
func ParseKey(key string) (Entry, bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != rootPrefix || !strings.HasSuffix(parts[3], ".json") {
		return Entry{}, false
	}
	name := strings.TrimSuffix(parts[3], ".json")
	for _, s := range core.Strategies() {
		if id, ok := strings.CutPrefix(name, string(s)+"-"); ok && id != "" {
			return Entry{Key: key, Ticker: parts[1], Date: parts[2], Strategy: s, JobID: id}, true
		}
	}
	return Entry{}, false
}

// Archiver stores completed backtests as JSON
type Archiver struct {
	storage Storage
	logger  *zap.Logger
	now     func() time.Time
}

// NewArchiver wraps a storage backend
func NewArchiver(storage Storage, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{storage: storage, logger: logger, now: time.Now}
}

// Save writes resp under a key dated by its first trade, or today when
// there were no trades. Returns the key.
func (a *Archiver) Save(ctx context.Context, jobID string, strategy core.Strategy, resp *dto.BacktestResponse) (string, error) {
	now := a.now().UTC()
	date := core.DateOnly(now)
	if len(resp.ChartData.Labels) > 0 {
		if d, err := time.Parse(core.DateLayout, resp.ChartData.Labels[0]); err == nil {
			date = d
		}
	}

	key := Key(resp.Ticker, date, strategy, jobID)
	data, err := json.MarshalIndent(Record{
		JobID:      jobID,
		Strategy:   strategy,
		ArchivedAt: now,
		Result:     resp,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}

	if err := a.storage.Write(ctx, key, data); err != nil {
		return "", fmt.Errorf("archiving %s: %w", key, err)
	}
	a.logger.Debug("archived backtest", zap.String("key", key))
	return key, nil
}

// Load reads one record
func (a *Archiver) Load(ctx context.Context, key string) (*Record, error) {
	if _, ok := ParseKey(key); !ok {
		return nil, ErrNotFound
	}
	data, err := a.storage.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return &rec, nil
}

// List returns archived entries, optionally for one ticker
func (a *Archiver) List(ctx context.Context, ticker string) ([]Entry, error) {
	prefix := rootPrefix
	if ticker != "" {
		prefix = path.Join(rootPrefix, strings.ToUpper(ticker))
	}
	keys, err := a.storage.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		if e, ok := ParseKey(key); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
