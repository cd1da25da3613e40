package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/services/leases"
)

// LeaseHandler exposes the currently held job leases for operators
type LeaseHandler struct {
	leases *leases.Service
	logger arbor.ILogger
}

// NewLeaseHandler creates a new LeaseHandler
func NewLeaseHandler(leaseService *leases.Service, logger arbor.ILogger) *LeaseHandler {
	return &LeaseHandler{
		leases: leaseService,
		logger: logger,
	}
}

// ListHandler handles GET /api/leases
func (h *LeaseHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	held, err := h.leases.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list leases")
		WriteError(w, http.StatusInternalServerError, "Failed to list leases")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"leases": held,
		"count":  len(held),
	})
}
