// internal/api/handler/api/backtest.go
package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/newthinker/optlab/internal/api/response"
	"github.com/newthinker/optlab/internal/query"
	"github.com/newthinker/optlab/internal/service"
)

// BacktestHandler serves the synchronous GET /backtest endpoint.
type BacktestHandler struct {
	runner service.Runner
	logger *zap.Logger
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(runner service.Runner, logger *zap.Logger) *BacktestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{runner: runner, logger: logger}
}

// Run decodes the query, runs the backtest and writes the flat result.
// Bad parameters are a 400; anything that goes wrong during the run is a 502.
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	req, err := query.Decode(r.URL.Query())
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		response.Backtest(w, http.StatusBadRequest, err)
		return
	}

	resp, err := h.runner.Run(r.Context(), req)
	if err != nil {
		status := response.StatusFor(err)
		if status != http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		h.logger.Warn("backtest request failed",
			zap.String("strategy", string(req.Strategy)),
			zap.String("ticker", req.Ticker),
			zap.Error(err))
		response.Backtest(w, status, err)
		return
	}
	if resp.Failed() {
		response.Raw(w, http.StatusBadGateway, resp)
		return
	}

	response.Raw(w, http.StatusOK, resp)
}
