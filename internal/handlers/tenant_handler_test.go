package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
	badgerstore "github.com/stephennewman/contextmemo/internal/storage/badger"
)

func newTestHandler(t *testing.T) (*TenantHandler, interfaces.StorageManager) {
	t.Helper()

	logger := arbor.NewLogger()
	manager, err := badgerstore.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	return NewTenantHandler(manager, logger), manager
}

func createTenant(t *testing.T, handler *TenantHandler, name, domain string) *models.Tenant {
	t.Helper()

	body := `{"name": "` + name + `", "domain": "` + domain + `"}`
	req := httptest.NewRequest("POST", "/api/tenants", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.CreateHandler(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tenant models.Tenant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tenant))
	return &tenant
}

func TestCreateTenantProvisionsDefaultSettings(t *testing.T) {
	handler, manager := newTestHandler(t)

	tenant := createTenant(t, handler, "Acme", "acme.example")
	assert.True(t, strings.HasPrefix(tenant.ID, "tnt_"), tenant.ID)
	assert.Equal(t, "Acme", tenant.Name)

	settings, err := manager.Settings().GetSettings(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.True(t, settings.Scans.Enabled)
	assert.Equal(t, models.CadenceDaily, settings.Scans.Cadence.Kind)
}

func TestCreateTenantRequiresName(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest("POST", "/api/tenants", strings.NewReader(`{"domain": "x.example"}`))
	rec := httptest.NewRecorder()
	handler.CreateHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTenantNotFound(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest("GET", "/api/tenants/tnt_missing", nil)
	rec := httptest.NewRecorder()
	handler.GetHandler(rec, req, "tnt_missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPauseAndResumeTenant(t *testing.T) {
	handler, manager := newTestHandler(t)
	tenant := createTenant(t, handler, "Acme", "acme.example")

	req := httptest.NewRequest("POST", "/api/tenants/"+tenant.ID+"/pause", nil)
	rec := httptest.NewRecorder()
	handler.PauseHandler(rec, req, tenant.ID, true)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := manager.Tenants().GetTenant(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.True(t, stored.Paused)

	req = httptest.NewRequest("POST", "/api/tenants/"+tenant.ID+"/resume", nil)
	rec = httptest.NewRecorder()
	handler.PauseHandler(rec, req, tenant.ID, false)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err = manager.Tenants().GetTenant(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.False(t, stored.Paused)
}

func TestDeleteTenant(t *testing.T) {
	handler, manager := newTestHandler(t)
	tenant := createTenant(t, handler, "Acme", "acme.example")

	req := httptest.NewRequest("DELETE", "/api/tenants/"+tenant.ID, nil)
	rec := httptest.NewRecorder()
	handler.DeleteHandler(rec, req, tenant.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := manager.Tenants().GetTenant(context.Background(), tenant.ID)
	assert.ErrorIs(t, err, models.ErrTenantNotFound)

	// Second delete is a 404, not an error
	rec = httptest.NewRecorder()
	handler.DeleteHandler(rec, req, tenant.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsUpdateRejectsInvalidCadence(t *testing.T) {
	handler, _ := newTestHandler(t)
	tenant := createTenant(t, handler, "Acme", "acme.example")

	body := `{"scans": {"enabled": true, "cadence": {"kind": "fortnightly"}}}`
	req := httptest.NewRequest("PUT", "/api/tenants/"+tenant.ID+"/settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.SettingsHandler(rec, req, tenant.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	handler, _ := newTestHandler(t)
	tenant := createTenant(t, handler, "Acme", "acme.example")

	update := models.DefaultSettings(tenant.ID)
	update.AutoPublishMemos = true
	update.Scans.Cadence = models.Cadence{Kind: models.CadenceCustom, Interval: 6 * time.Hour}
	payload, err := json.Marshal(update)
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", "/api/tenants/"+tenant.ID+"/settings", strings.NewReader(string(payload)))
	rec := httptest.NewRecorder()
	handler.SettingsHandler(rec, req, tenant.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest("GET", "/api/tenants/"+tenant.ID+"/settings", nil)
	rec = httptest.NewRecorder()
	handler.SettingsHandler(rec, req, tenant.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.AutomationSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.True(t, stored.AutoPublishMemos)
	assert.Equal(t, models.CadenceCustom, stored.Scans.Cadence.Kind)
	assert.Equal(t, 6*time.Hour, stored.Scans.Cadence.Interval)
}
