package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, usedPath, warning := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, warning)
	assert.Empty(t, usedPath)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMalformedYAMLFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telemetry_interval_secs: [not a number"), 0o644))

	cfg, _, warning := Load(path)
	assert.Error(t, warning)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telemetry_interval_secs: 30
max_chunk_size: 131072
device_path: /dev/vport2p1
security:
  command_blocklist:
    - /bin/rm
  max_commands_per_minute: 10
  audit_logging: true
`), 0o644))

	cfg, usedPath, warning := Load(path)
	require.NoError(t, warning)
	assert.Equal(t, path, usedPath)
	assert.Equal(t, uint64(30), cfg.TelemetryIntervalSecs)
	assert.Equal(t, 131072, cfg.MaxChunkSize)
	assert.Equal(t, "/dev/vport2p1", cfg.DevicePath)
	assert.Equal(t, []string{"/bin/rm"}, cfg.Security.CommandBlocklist)
	assert.Equal(t, uint32(10), cfg.Security.MaxCommandsPerMin)
	assert.True(t, cfg.Security.AuditLogging)

	// Untouched keys keep their defaults.
	assert.Equal(t, uint32(300), cfg.MaxExecTimeoutSecs)
	assert.True(t, cfg.Security.QuiesceFailOnHookError)
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cfg := Default()
	cfg.TelemetryIntervalSecs = 0
	assert.ErrorContains(t, cfg.Validate(), "telemetry_interval_secs")

	cfg = Default()
	cfg.MaxExecTimeoutSecs = 0
	assert.ErrorContains(t, cfg.Validate(), "max_exec_timeout_secs")

	cfg = Default()
	cfg.MaxChunkSize = maxChunkSizeCeiling + 1
	assert.ErrorContains(t, cfg.Validate(), "max_chunk_size")

	cfg = Default()
	cfg.MaxChunkSize = 0
	assert.ErrorContains(t, cfg.Validate(), "max_chunk_size")

	cfg = Default()
	cfg.LogLevel = "verbose"
	assert.ErrorContains(t, cfg.Validate(), "log_level")
}

func TestDevicePathsResolution(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultDevicePaths(), cfg.DevicePaths(), "the auto sentinel expands to the platform list")

	cfg.DevicePath = "/dev/vport9p1"
	assert.Equal(t, []string{"/dev/vport9p1"}, cfg.DevicePaths())
}
