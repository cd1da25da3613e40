package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/interfaces"
)

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	config  *common.Config
	storage interfaces.StorageManager
	logger  arbor.ILogger
	started time.Time
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(config *common.Config, storage interfaces.StorageManager, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		config:  config,
		storage: storage,
		logger:  logger,
		started: time.Now().UTC(),
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	tenantCount := 0
	if tenants, err := h.storage.Tenants().ListTenants(r.Context()); err == nil {
		tenantCount = len(tenants)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"version":     common.GetVersion(),
		"environment": h.config.Environment,
		"uptime":      time.Since(h.started).Round(time.Second).String(),
		"tenants":     tenantCount,
	})
}
