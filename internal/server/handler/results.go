package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// ResultsHandler serves the published per-pair results out of the
// result cache.
type ResultsHandler struct {
	results domain.ResultCache
	pairs   []domain.Pair
	logger  *slog.Logger
}

// NewResultsHandler creates a ResultsHandler over the configured pair
// universe.
func NewResultsHandler(results domain.ResultCache, pairs []domain.Pair, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{
		results: results,
		pairs:   pairs,
		logger:  logger,
	}
}

// ListResults returns the latest result for every configured pair.
// Pairs that have not been published yet are simply absent.
// GET /api/results
func (h *ResultsHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.results.ListResults(r.Context(), h.pairs)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list results", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// GetResult returns the latest result for one pair.
// GET /api/results/{pair}
func (h *ResultsHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	pair, err := parsePairParam(r.PathValue("pair"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.results.GetResult(r.Context(), pair)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no result for pair "+pair.String())
			return
		}
		h.logger.ErrorContext(r.Context(), "get result",
			slog.String("pair", pair.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get result")
		return
	}

	writeJSON(w, http.StatusOK, res)
}
