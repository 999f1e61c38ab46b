package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// CycleRunner is the slice of the orchestrator the pipeline endpoints
// need.
type CycleRunner interface {
	// TriggerCycle starts one background cycle, or returns
	// ErrCycleRunning when one is already in flight.
	TriggerCycle() error
	State() string
	LastReport() *domain.CycleReport
}

// PipelineHandler serves the manual cycle trigger and the pipeline
// status endpoint.
type PipelineHandler struct {
	runner CycleRunner
	logger *slog.Logger
}

func NewPipelineHandler(runner CycleRunner, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{runner: runner, logger: logger}
}

// TriggerCycle starts one refresh cycle. Responds 409 when a cycle is
// already running.
// POST /api/pipeline/cycle
func (h *PipelineHandler) TriggerCycle(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "manual cycle requested")

	if err := h.runner.TriggerCycle(); err != nil {
		if errors.Is(err, domain.ErrCycleRunning) {
			writeError(w, http.StatusConflict, "a cycle is already running")
			return
		}
		h.logger.ErrorContext(r.Context(), "trigger cycle", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to trigger cycle")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status reports the orchestrator state and the last cycle report.
// GET /api/pipeline/status
func (h *PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state":       h.runner.State(),
		"last_report": h.runner.LastReport(),
	})
}
