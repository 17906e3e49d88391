// internal/api/response/response_test.go
package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/dto"
)

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"hello": "world"}

	JSON(w, http.StatusOK, data)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected application/json content type")
	}

	var resp SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Data == nil {
		t.Error("expected data in response")
	}
	if resp.Meta.Timestamp.IsZero() {
		t.Error("expected timestamp in meta")
	}
}

func TestError_WithCoreError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidParams, errors.New("delta")))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error.Code != "INVALID_PARAMS" {
		t.Errorf("expected INVALID_PARAMS, got %s", resp.Error.Code)
	}
	if resp.Error.Cause != "delta" {
		t.Errorf("expected cause delta, got %s", resp.Error.Cause)
	}
}

func TestError_WithStandardError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusInternalServerError, errors.New("boom"))

	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("expected INTERNAL_ERROR, got %s", resp.Error.Code)
	}
}

func TestBacktest_FlatError(t *testing.T) {
	w := httptest.NewRecorder()

	Backtest(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidParams, errors.New("ticker: invalid \"\"")))

	var raw map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["code"] != "INVALID_PARAMS" {
		t.Errorf("expected INVALID_PARAMS, got %v", raw["code"])
	}
	if raw["error"] != "invalid backtest parameters: ticker: invalid \"\"" {
		t.Errorf("unexpected error message: %v", raw["error"])
	}
	if _, ok := raw["data"]; ok {
		t.Error("flat body must not be wrapped in an envelope")
	}

	var resp dto.BacktestResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.TradeLog == nil || len(resp.TradeLog) != 0 {
		t.Errorf("expected empty trade log, got %v", resp.TradeLog)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{core.ErrInvalidParams, http.StatusBadRequest},
		{fmt.Errorf("run: %w", core.ErrUnknownStrategy), http.StatusBadRequest},
		{core.ErrJobNotFound, http.StatusNotFound},
		{core.WrapError(core.ErrJobNotReady, errors.New("job is running")), http.StatusConflict},
		{core.ErrLLMUnavailable, http.StatusServiceUnavailable},
		{core.WrapError(core.ErrCollectorFailed, errors.New("timeout")), http.StatusBadGateway},
		{core.ErrNoData, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
