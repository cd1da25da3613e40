package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/interfaces"
)

// SchedulerHandler handles HTTP requests for scheduler control
type SchedulerHandler struct {
	scheduler interfaces.SchedulerService
	logger    arbor.ILogger
}

// NewSchedulerHandler creates a new SchedulerHandler
func NewSchedulerHandler(scheduler interfaces.SchedulerService, logger arbor.ILogger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// RunCycleHandler handles POST /api/scheduler/run
func (h *SchedulerHandler) RunCycleHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.scheduler.TriggerJob(r.Context(), "automation-cycle"); err != nil {
		h.logger.Error().Err(err).Msg("Failed to trigger automation cycle")
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "started",
		"message": "Automation cycle triggered",
	})
}

// RunSnapshotHandler handles POST /api/scheduler/snapshot
func (h *SchedulerHandler) RunSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.scheduler.TriggerJob(r.Context(), "visibility-snapshot"); err != nil {
		h.logger.Error().Err(err).Msg("Failed to trigger snapshot run")
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "started",
		"message": "Snapshot run triggered",
	})
}

// StatusHandler handles GET /api/scheduler/status
func (h *SchedulerHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"running": h.scheduler.IsRunning(),
		"jobs":    h.scheduler.JobStatus(),
	})
}
