package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/newthinker/optlab/internal/api/response"
	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/storage/archive"
)

// ArchiveHandler serves archived results.
type ArchiveHandler struct {
	archiver *archive.Archiver
	logger   *zap.Logger
}

// NewArchiveHandler creates a new archive handler.
func NewArchiveHandler(archiver *archive.Archiver, logger *zap.Logger) *ArchiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveHandler{archiver: archiver, logger: logger}
}

// List returns archived entries, filtered by ?ticker= when given.
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.archiver.List(r.Context(), r.URL.Query().Get("ticker"))
	if err != nil {
		h.logger.Error("listing archive", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, err)
		return
	}
	response.JSON(w, http.StatusOK, entries)
}

// Get returns one archived record.
func (h *ArchiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	rec, err := h.archiver.Load(r.Context(), key)
	if errors.Is(err, archive.ErrNotFound) {
		response.Error(w, http.StatusNotFound,
			core.WrapError(core.ErrArchiveNotFound, errors.New(key)))
		return
	}
	if err != nil {
		h.logger.Error("loading archive", zap.String("key", key), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}
