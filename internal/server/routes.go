package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)

	// API routes - Tenants
	mux.HandleFunc("/api/tenants", s.handleTenantsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/tenants/", s.handleTenantRoutes) // /{id} and subpaths

	// API routes - Scheduler
	mux.HandleFunc("/api/scheduler/run", s.app.SchedulerHandler.RunCycleHandler)
	mux.HandleFunc("/api/scheduler/snapshot", s.app.SchedulerHandler.RunSnapshotHandler)
	mux.HandleFunc("/api/scheduler/status", s.app.SchedulerHandler.StatusHandler)

	// API routes - Leases
	mux.HandleFunc("/api/leases", s.app.LeaseHandler.ListHandler)

	return mux
}

// handleTenantsRoute routes the tenant collection endpoint
func (s *Server) handleTenantsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.TenantHandler.ListHandler(w, r)
	case "POST":
		s.app.TenantHandler.CreateHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTenantRoutes routes /api/tenants/{id} and its subresources
func (s *Server) handleTenantRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tenants/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	tenantID := parts[0]
	if tenantID == "" {
		http.Error(w, "Tenant ID required", http.StatusBadRequest)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodDelete:
			s.app.TenantHandler.DeleteHandler(w, r, tenantID)
		default:
			s.app.TenantHandler.GetHandler(w, r, tenantID)
		}
		return
	}

	switch parts[1] {
	case "pause":
		s.app.TenantHandler.PauseHandler(w, r, tenantID, true)
	case "resume":
		s.app.TenantHandler.PauseHandler(w, r, tenantID, false)
	case "settings":
		s.app.TenantHandler.SettingsHandler(w, r, tenantID)
	case "snapshots":
		s.app.TenantHandler.SnapshotsHandler(w, r, tenantID)
	case "notifications":
		s.app.TenantHandler.NotificationsHandler(w, r, tenantID)
	case "memos":
		s.app.TenantHandler.MemosHandler(w, r, tenantID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}
