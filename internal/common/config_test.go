package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, "./data", config.Storage.Badger.Path)
	assert.Equal(t, "30m", config.Automation.LeaseTTL)
	assert.Equal(t, 3, config.Queue.MaxReceive)
	assert.True(t, config.Scheduler.Enabled)

	require.NoError(t, config.Validate())
}

func TestLoadFromFiles_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contextmemo.toml")
	content := `
[server]
port = 9090
host = "0.0.0.0"

[automation]
lease_ttl = "45m"
step_timeout = "5m"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, "45m", config.Automation.LeaseTTL)
	assert.Equal(t, "5m", config.Automation.StepTimeout)
	// Untouched sections keep defaults
	assert.Equal(t, "./data", config.Storage.Badger.Path)
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contextmemo.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9090\n"), 0644))

	t.Setenv("CONTEXTMEMO_SERVER_PORT", "7070")
	t.Setenv("CONTEXTMEMO_LOG_LEVEL", "debug")

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestValidate_StepTimeoutMustBeBelowLeaseTTL(t *testing.T) {
	config := NewDefaultConfig()
	config.Automation.LeaseTTL = "5m"
	config.Automation.StepTimeout = "10m"

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step_timeout")
}

func TestValidate_RejectsBadDurations(t *testing.T) {
	config := NewDefaultConfig()
	config.Automation.SweepInterval = "not-a-duration"

	require.Error(t, config.Validate())
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 6060, "example.internal")
	assert.Equal(t, 6060, config.Server.Port)
	assert.Equal(t, "example.internal", config.Server.Host)

	// Zero values leave config untouched
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 6060, config.Server.Port)
	assert.Equal(t, "example.internal", config.Server.Host)
}

func TestIsProduction(t *testing.T) {
	config := NewDefaultConfig()
	assert.False(t, config.IsProduction())

	config.Environment = "production"
	assert.True(t, config.IsProduction())

	config.Environment = " PROD "
	assert.True(t, config.IsProduction())
}
