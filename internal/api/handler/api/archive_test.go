package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/storage/archive"
)

func newArchiveHandler(t *testing.T) (*ArchiveHandler, string) {
	t.Helper()
	fs, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	archiver := archive.NewArchiver(fs, nil)

	key, err := archiver.Save(context.Background(), "job-1", core.StrategyCoveredCall, sampleResponse())
	require.NoError(t, err)
	return NewArchiveHandler(archiver, nil), key
}

func TestArchiveHandler_List(t *testing.T) {
	h, key := newArchiveHandler(t)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/api/v1/archive?ticker=msft", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []archive.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, key, body.Data[0].Key)
	assert.Equal(t, "2024-06-03", body.Data[0].Date)

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/api/v1/archive?ticker=AAPL", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Data)
}

func TestArchiveHandler_Get(t *testing.T) {
	h, key := newArchiveHandler(t)

	req := mux.SetURLVars(httptest.NewRequest("GET", "/api/v1/archive/"+key, nil), map[string]string{"key": key})
	w := httptest.NewRecorder()
	h.Get(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data archive.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "job-1", body.Data.JobID)
	assert.Equal(t, 120.0, body.Data.Result.TotalProfit)
}

func TestArchiveHandler_GetMissing(t *testing.T) {
	h, _ := newArchiveHandler(t)

	key := "backtests/MSFT/2024-06-03/covered_call-nope.json"
	req := mux.SetURLVars(httptest.NewRequest("GET", "/api/v1/archive/"+key, nil), map[string]string{"key": key})
	w := httptest.NewRecorder()
	h.Get(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
