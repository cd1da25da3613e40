package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// TenantHandler handles HTTP requests for tenant management
type TenantHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(storage interfaces.StorageManager, logger arbor.ILogger) *TenantHandler {
	return &TenantHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListHandler handles GET /api/tenants
func (h *TenantHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	tenants, err := h.storage.Tenants().ListTenants(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list tenants")
		WriteError(w, http.StatusInternalServerError, "Failed to list tenants")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"count":   len(tenants),
	})
}

// CreateHandler handles POST /api/tenants
func (h *TenantHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Name   string `json:"name"`
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		WriteError(w, http.StatusBadRequest, "Tenant name is required")
		return
	}

	now := time.Now().UTC()
	tenant := &models.Tenant{
		ID:        common.NewTenantID(),
		Name:      req.Name,
		Domain:    req.Domain,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.storage.Tenants().SaveTenant(r.Context(), tenant); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create tenant")
		WriteError(w, http.StatusInternalServerError, "Failed to create tenant")
		return
	}

	// New tenants start with the default automation schedule
	if err := h.storage.Settings().SaveSettings(r.Context(), models.DefaultSettings(tenant.ID)); err != nil {
		h.logger.Error().Err(err).Str("tenant_id", tenant.ID).Msg("Failed to save default settings")
		WriteError(w, http.StatusInternalServerError, "Failed to save default settings")
		return
	}

	h.logger.Info().
		Str("tenant_id", tenant.ID).
		Str("name", tenant.Name).
		Msg("Tenant created")

	WriteJSON(w, http.StatusCreated, tenant)
}

// GetHandler handles GET /api/tenants/{id}
func (h *TenantHandler) GetHandler(w http.ResponseWriter, r *http.Request, tenantID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	tenant, err := h.storage.Tenants().GetTenant(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, models.ErrTenantNotFound) {
			WriteError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		h.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("Failed to get tenant")
		WriteError(w, http.StatusInternalServerError, "Failed to get tenant")
		return
	}

	WriteJSON(w, http.StatusOK, tenant)
}

// DeleteHandler handles DELETE /api/tenants/{id}. In-flight automation
// chains notice the deletion at their next step and stop there.
func (h *TenantHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, tenantID string) {
	if err := h.storage.Tenants().DeleteTenant(r.Context(), tenantID); err != nil {
		if errors.Is(err, models.ErrTenantNotFound) {
			WriteError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		h.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("Failed to delete tenant")
		WriteError(w, http.StatusInternalServerError, "Failed to delete tenant")
		return
	}

	h.logger.Info().Str("tenant_id", tenantID).Msg("Tenant deleted")
	WriteSuccess(w, "Tenant deleted")
}

// PauseHandler handles POST /api/tenants/{id}/pause and /resume
func (h *TenantHandler) PauseHandler(w http.ResponseWriter, r *http.Request, tenantID string, paused bool) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.storage.Tenants().SetPaused(r.Context(), tenantID, paused); err != nil {
		if errors.Is(err, models.ErrTenantNotFound) {
			WriteError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		h.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("Failed to update pause state")
		WriteError(w, http.StatusInternalServerError, "Failed to update pause state")
		return
	}

	state := "resumed"
	if paused {
		state = "paused"
	}
	h.logger.Info().
		Str("tenant_id", tenantID).
		Str("state", state).
		Msg("Tenant pause state changed")

	WriteSuccess(w, "Tenant "+state)
}

// SettingsHandler handles GET and PUT /api/tenants/{id}/settings
func (h *TenantHandler) SettingsHandler(w http.ResponseWriter, r *http.Request, tenantID string) {
	switch r.Method {
	case "GET":
		settings, err := h.storage.Settings().GetSettings(r.Context(), tenantID)
		if err != nil {
			h.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("Failed to get settings")
			WriteError(w, http.StatusInternalServerError, "Failed to get settings")
			return
		}
		WriteJSON(w, http.StatusOK, settings)

	case "PUT":
		var settings models.AutomationSettings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		settings.TenantID = tenantID
		settings.UpdatedAt = time.Now().UTC()
		if err := settings.Validate(); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.storage.Settings().SaveSettings(r.Context(), &settings); err != nil {
			h.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("Failed to save settings")
			WriteError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
		WriteJSON(w, http.StatusOK, settings)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// SnapshotsHandler handles GET /api/tenants/{id}/snapshots
func (h *TenantHandler) SnapshotsHandler(w http.ResponseWriter, r *http.Request, tenantID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := GetLimitParam(r, 30, 365)
	snapshots, err := h.storage.Snapshots().ListSnapshots(r.Context(), tenantID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("Failed to list snapshots")
		WriteError(w, http.StatusInternalServerError, "Failed to list snapshots")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// NotificationsHandler handles GET /api/tenants/{id}/notifications
func (h *TenantHandler) NotificationsHandler(w http.ResponseWriter, r *http.Request, tenantID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := GetLimitParam(r, 50, 500)
	notifications, err := h.storage.Notifications().ListNotifications(r.Context(), tenantID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("Failed to list notifications")
		WriteError(w, http.StatusInternalServerError, "Failed to list notifications")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// MemosHandler handles GET /api/tenants/{id}/memos
func (h *TenantHandler) MemosHandler(w http.ResponseWriter, r *http.Request, tenantID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	memos, err := h.storage.Results().ListMemos(r.Context(), tenantID)
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("Failed to list memos")
		WriteError(w, http.StatusInternalServerError, "Failed to list memos")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"memos": memos,
		"count": len(memos),
	})
}
