package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/newthinker/optlab/internal/api/job"
	"github.com/newthinker/optlab/internal/api/response"
	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/dto"
	"github.com/newthinker/optlab/internal/notifier"
	"github.com/newthinker/optlab/internal/query"
	"github.com/newthinker/optlab/internal/service"
)

const defaultJobTimeout = 5 * time.Minute

// Archiver persists completed results.
type Archiver interface {
	Save(ctx context.Context, jobID string, strategy core.Strategy, resp *dto.BacktestResponse) (string, error)
}

// Reviewer produces LLM commentary for a result.
type Reviewer interface {
	Enabled() bool
	Provider() string
	Review(ctx context.Context, resp *dto.BacktestResponse) (string, error)
}

// JobMetrics receives job lifecycle events.
type JobMetrics interface {
	JobStarted()
	JobFinished()
	RecordReview(provider, status string)
}

// JobNotifier receives an event for every finished job.
type JobNotifier interface {
	NotifyAll(ctx context.Context, event notifier.Event) map[string]error
}

// JobsOption configures a JobsHandler.
type JobsOption func(*JobsHandler)

// WithArchiver archives every completed job.
func WithArchiver(a Archiver) JobsOption {
	return func(h *JobsHandler) { h.archiver = a }
}

// WithReviewer enables GET /api/v1/backtests/{id}/review.
func WithReviewer(r Reviewer) JobsOption {
	return func(h *JobsHandler) { h.reviewer = r }
}

// WithJobMetrics records job counts.
func WithJobMetrics(m JobMetrics) JobsOption {
	return func(h *JobsHandler) { h.metrics = m }
}

// WithNotifier sends job events when a run finishes.
func WithNotifier(n JobNotifier) JobsOption {
	return func(h *JobsHandler) { h.notifier = n }
}

// WithJobTimeout bounds a single background run.
func WithJobTimeout(d time.Duration) JobsOption {
	return func(h *JobsHandler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithJobLogger sets the logger.
func WithJobLogger(l *zap.Logger) JobsOption {
	return func(h *JobsHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// JobsHandler handles the async /api/v1/backtests endpoints.
type JobsHandler struct {
	store    *job.Store
	runner   service.Runner
	archiver Archiver
	reviewer Reviewer
	metrics  JobMetrics
	notifier JobNotifier
	timeout  time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store *job.Store, runner service.Runner, opts ...JobsOption) *JobsHandler {
	h := &JobsHandler{
		store:   store,
		runner:  runner,
		timeout: defaultJobTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Create starts a new backtest job from the query string or a JSON body.
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJobRequest(r)
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	j := h.store.Create(req.Strategy, req.Ticker, req.Parameters())

	// Copy values before starting goroutine to avoid race
	jobID := j.ID
	status := j.Status

	h.wg.Add(1)
	go h.run(jobID, req)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": status,
	})
}

// Wait blocks until every background run has finished.
func (h *JobsHandler) Wait() {
	h.wg.Wait()
}

func (h *JobsHandler) run(jobID string, req query.BacktestRequest) {
	defer h.wg.Done()
	if h.metrics != nil {
		h.metrics.JobStarted()
		defer h.metrics.JobFinished()
	}

	h.store.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	resp, err := h.runner.Run(ctx, req)
	if err == nil && resp.Failed() {
		err = &core.Error{Code: resp.Code, Message: resp.Error}
	}
	if err != nil {
		h.logger.Warn("backtest job failed", zap.String("job_id", jobID), zap.Error(err))
		h.store.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = job.FailureFrom(err)
		})
		h.notify(ctx, jobID)
		return
	}

	var key string
	if h.archiver != nil {
		key, err = h.archiver.Save(ctx, jobID, req.Strategy, resp)
		if err != nil {
			h.logger.Warn("archiving job failed", zap.String("job_id", jobID), zap.Error(err))
			key = ""
		}
	}

	h.store.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Result = resp
		j.ArchiveKey = key
	})
	h.notify(ctx, jobID)
}

func (h *JobsHandler) notify(ctx context.Context, jobID string) {
	if h.notifier == nil {
		return
	}
	j, err := h.store.Get(jobID)
	if err != nil {
		return
	}

	event := notifier.Event{
		Type:       notifier.EventJobCompleted,
		JobID:      j.ID,
		Strategy:   j.Strategy,
		Ticker:     j.Ticker,
		Parameters: j.Parameters,
		ArchiveKey: j.ArchiveKey,
		FinishedAt: j.UpdatedAt,
	}
	if j.Result != nil {
		event.TotalProfit = j.Result.TotalProfit
		event.TradeCount = j.Result.TradeCount
	}
	if j.Error != nil {
		event.Type = notifier.EventJobFailed
		event.ErrorCode = j.Error.Code
		event.Error = j.Error.Message
	}

	// A timed out run still gets its failure delivered
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	for name, err := range h.notifier.NotifyAll(ctx, event) {
		h.logger.Warn("job notification failed",
			zap.String("job_id", jobID), zap.String("notifier", name), zap.Error(err))
	}
}

// List returns every known job, newest first, without results.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.store.List()
	for i := range jobs {
		jobs[i].Result = nil
		jobs[i].Review = ""
	}
	response.JSON(w, http.StatusOK, jobs)
}

// Get returns the status of a job and its result once complete.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}

// Review returns LLM commentary for a completed job. The text is cached on
// the job after the first call.
func (h *JobsHandler) Review(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	j, err := h.store.Get(id)
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}
	if h.reviewer == nil || !h.reviewer.Enabled() {
		response.Error(w, http.StatusServiceUnavailable, core.ErrLLMUnavailable)
		return
	}
	if j.Status != job.StatusComplete {
		response.Error(w, http.StatusConflict,
			core.WrapError(core.ErrJobNotReady, errors.New("job is "+string(j.Status))))
		return
	}
	if j.Review != "" {
		writeReview(w, j, h.reviewer.Provider())
		return
	}

	text, err := h.reviewer.Review(r.Context(), j.Result)
	if h.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		h.metrics.RecordReview(h.reviewer.Provider(), status)
	}
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}

	h.store.Update(id, func(j *job.Job) { j.Review = text })
	j.Review = text
	writeReview(w, j, h.reviewer.Provider())
}

func writeReview(w http.ResponseWriter, j *job.Job, provider string) {
	response.JSON(w, http.StatusOK, map[string]any{
		"job_id":   j.ID,
		"provider": provider,
		"review":   j.Review,
	})
}

// decodeJobRequest reads a JSON body when one is sent, otherwise the query
// string and form values. Missing keys take their defaults either way.
func decodeJobRequest(r *http.Request) (query.BacktestRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		req := query.Defaults()
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, core.WrapError(core.ErrInvalidParams, err)
		}
		req.Normalize()
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return query.Defaults(), core.WrapError(core.ErrInvalidParams, err)
	}
	return query.Decode(r.Form)
}
