package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// archivePrefix is where the archiver writes its objects.
const archivePrefix = "archive/"

// SnapshotReader serves the most recent persisted snapshot per pair.
type SnapshotReader interface {
	// Latest returns ErrNotFound when the pair has never been stored.
	Latest(ctx context.Context, pair domain.Pair) (*domain.OrderBookSnapshot, error)
}

// HistoryHandler serves persisted snapshot history and the archived
// cold-storage objects. Either backend may be nil when the deployment
// runs without PostgreSQL or S3; the matching endpoints then answer 404.
type HistoryHandler struct {
	snapshots SnapshotReader
	blobs     domain.BlobReader
	logger    *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler over the given backends.
func NewHistoryHandler(snapshots SnapshotReader, blobs domain.BlobReader, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{snapshots: snapshots, blobs: blobs, logger: logger}
}

// LatestSnapshot returns the most recent persisted snapshot for a pair.
// GET /api/snapshots/{pair}
func (h *HistoryHandler) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, http.StatusNotFound, "snapshot history is not enabled")
		return
	}

	pair, err := parsePairParam(r.PathValue("pair"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.snapshots.Latest(r.Context(), pair)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshot for pair "+pair.String())
			return
		}
		h.logger.ErrorContext(r.Context(), "latest snapshot",
			slog.String("pair", pair.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// ListArchive lists the archived snapshot objects in cold storage.
// GET /api/archive
func (h *HistoryHandler) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotFound, "cold storage is not enabled")
		return
	}

	keys, err := h.blobs.List(r.Context(), archivePrefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list archive", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list archive")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"objects": keys,
		"count":   len(keys),
	})
}

// GetArchiveObject streams one archived object as it was stored. The
// key is the full object path as returned by ListArchive.
// GET /api/archive/{key...}
func (h *HistoryHandler) GetArchiveObject(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotFound, "cold storage is not enabled")
		return
	}

	key := r.PathValue("key")
	if !strings.HasPrefix(key, archivePrefix) || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid archive key")
		return
	}

	body, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no archive object "+key)
			return
		}
		h.logger.ErrorContext(r.Context(), "get archive object",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load archive object")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "stream archive object",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
