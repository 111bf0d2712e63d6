package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// SnapshotSource reads archived reconciliation snapshots.
// *s3blob.SnapshotArchive satisfies it.
type SnapshotSource interface {
	List(ctx context.Context, day time.Time) ([]domain.BlobInfo, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// SnapshotHandler serves the snapshot archive endpoints.
type SnapshotHandler struct {
	archive SnapshotSource
	logger  *slog.Logger
}

// NewSnapshotHandler creates a SnapshotHandler.
func NewSnapshotHandler(archive SnapshotSource, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		archive: archive,
		logger:  logHandler(logger, "snapshots"),
	}
}

// ListSnapshots enumerates stored snapshots. The optional date query
// parameter (YYYY-MM-DD) restricts the listing to one UTC day.
// GET /api/snapshots
func (h *SnapshotHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	var day time.Time
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	infos, err := h.archive.List(r.Context(), day)
	if err != nil {
		h.logger.Error("list snapshots failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(infos),
		"snapshots": infos,
	})
}

// GetSnapshot streams one stored snapshot body.
// GET /api/snapshots/{key...}
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")

	body, err := h.archive.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		h.logger.Error("get snapshot failed", slog.String("key", key), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get snapshot")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
