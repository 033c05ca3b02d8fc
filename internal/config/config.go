// Package config loads the agent's process-wide configuration. It is
// read once at startup; nothing in this package supports hot reload.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default on-disk locations, platform specific.
const (
	DefaultConfigPathUnix    = "/etc/quantix-kvm/agent.yaml"
	DefaultConfigPathWindows = `C:\ProgramData\Quantix-KVM\agent.yaml`

	DefaultLogPathUnix    = "/var/log/quantix-kvm/agent.log"
	DefaultLogPathWindows = `C:\ProgramData\Quantix-KVM\Logs\agent.log`

	DefaultPreFreezeDirUnix    = "/etc/quantix-kvm/pre-freeze.d"
	DefaultPreFreezeDirWindows = `C:\ProgramData\Quantix-KVM\pre-freeze.d`

	DefaultPostThawDirUnix    = "/etc/quantix-kvm/post-thaw.d"
	DefaultPostThawDirWindows = `C:\ProgramData\Quantix-KVM\post-thaw.d`

	// AutoDevicePath is the sentinel meaning "use the platform default list".
	AutoDevicePath = "auto"

	maxChunkSizeCeiling = 10 * 1024 * 1024
)

// Security holds the command/file access policy and rate limits.
type Security struct {
	CommandAllowlist    []string `yaml:"command_allowlist"`
	CommandBlocklist    []string `yaml:"command_blocklist"`
	AllowFileWritePaths []string `yaml:"allow_file_write_paths"`
	DenyFileReadPaths   []string `yaml:"deny_file_read_paths"`
	MaxCommandsPerMin   uint32   `yaml:"max_commands_per_minute"`
	MaxFileOpsPerSec    uint32   `yaml:"max_file_ops_per_second"`
	AuditLogging        bool     `yaml:"audit_logging"`

	// QuiesceFailOnHookError implements the conservative default for the
	// pre-freeze hook aggregation open question: any non-zero
	// exit among the pre-freeze scripts fails the quiesce.
	QuiesceFailOnHookError bool `yaml:"quiesce_fail_on_hook_error"`

	// QuiesceMaxHoldSecs bounds how long a quiesce may stay active before
	// the watchdog force-thaws it (default 60s).
	QuiesceMaxHoldSecs uint64 `yaml:"quiesce_max_hold_secs"`

	// HookScriptTimeoutSecs bounds each individual pre-freeze/post-thaw
	// script (default 10s).
	HookScriptTimeoutSecs uint64 `yaml:"hook_script_timeout_secs"`
}

// Health controls the internal health-monitoring loop.
type Health struct {
	Enabled              bool   `yaml:"enabled"`
	IntervalSecs         uint64 `yaml:"interval_secs"`
	TelemetryTimeoutSecs uint64 `yaml:"telemetry_timeout_secs"`
}

// Config is the agent's full process-wide configuration, loaded once from
// YAML at startup.
type Config struct {
	TelemetryIntervalSecs uint64 `yaml:"telemetry_interval_secs"`
	MaxExecTimeoutSecs    uint32 `yaml:"max_exec_timeout_secs"`
	MaxChunkSize          int    `yaml:"max_chunk_size"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`

	// SyslogEnabled additionally routes log entries to the local syslog
	// daemon, gated off by default since a guest may not always run one
	// (Unix only; ignored on Windows).
	SyslogEnabled bool `yaml:"syslog_enabled"`

	LogMaxSizeBytes uint64 `yaml:"log_max_size_bytes"`
	LogMaxFiles     uint32 `yaml:"log_max_files"`

	// DevicePath names the transport character device, or AutoDevicePath
	// to probe the platform default list.
	DevicePath string `yaml:"device_path"`

	// VSockEnabled opts into attempting the VSOCK high-bandwidth path
	// before falling back to the character device.
	VSockEnabled bool   `yaml:"vsock_enabled"`
	VSockCID     uint32 `yaml:"vsock_cid"`
	VSockPort    uint32 `yaml:"vsock_port"`

	PreFreezeScriptDir string `yaml:"pre_freeze_script_dir"`
	PostThawScriptDir  string `yaml:"post_thaw_script_dir"`

	// Hostname, if non-empty, is applied at startup.
	Hostname string `yaml:"hostname"`

	// SupplementaryGroupCacheTTLSecs bounds how long the Execute handler's
	// supplementary-group lookups are cached for privilege drop.
	SupplementaryGroupCacheTTLSecs uint64 `yaml:"supplementary_group_cache_ttl_secs"`

	Security Security `yaml:"security"`
	Health   Health   `yaml:"health"`
}

var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// Default returns the configuration an agent starts with when no config
// file is present or the file fails to parse.
func Default() *Config {
	return &Config{
		TelemetryIntervalSecs:          5,
		MaxExecTimeoutSecs:             300,
		MaxChunkSize:                   65536,
		LogLevel:                       "info",
		LogFormat:                      "json",
		LogFile:                        "",
		LogMaxSizeBytes:                10 * 1024 * 1024,
		LogMaxFiles:                    5,
		DevicePath:                     AutoDevicePath,
		VSockCID:                       2,
		VSockPort:                      9443,
		PreFreezeScriptDir:             defaultPreFreezeDir(),
		PostThawScriptDir:              defaultPostThawDir(),
		SupplementaryGroupCacheTTLSecs: 300,
		Security: Security{
			QuiesceFailOnHookError: true,
			QuiesceMaxHoldSecs:     60,
			HookScriptTimeoutSecs:  10,
		},
		Health: Health{
			Enabled:              true,
			IntervalSecs:         30,
			TelemetryTimeoutSecs: 60,
		},
	}
}

func defaultConfigPath() string {
	if runtime.GOOS == "windows" {
		return DefaultConfigPathWindows
	}
	return DefaultConfigPathUnix
}

func defaultPreFreezeDir() string {
	if runtime.GOOS == "windows" {
		return DefaultPreFreezeDirWindows
	}
	return DefaultPreFreezeDirUnix
}

func defaultPostThawDir() string {
	if runtime.GOOS == "windows" {
		return DefaultPostThawDirWindows
	}
	return DefaultPostThawDirUnix
}

// DefaultLogPath returns the platform default agent log file path.
func DefaultLogPath() string {
	if runtime.GOOS == "windows" {
		return DefaultLogPathWindows
	}
	return DefaultLogPathUnix
}

// Load reads configuration from path, or from the platform default path if
// path is empty. A missing file or a YAML parse failure both fall back to
// Default(), logged by the caller (so this package stays logger-agnostic).
func Load(path string) (cfg *Config, usedPath string, warning error) {
	if path == "" {
		path = defaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), "", fmt.Errorf("config file %s not found, using defaults: %w", path, err)
	}

	cfg = Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default(), "", fmt.Errorf("config file %s failed to parse, using defaults: %w", path, err)
	}

	return cfg, path, nil
}

// Validate enforces the config's range constraints.
func (c *Config) Validate() error {
	if c.TelemetryIntervalSecs == 0 {
		return fmt.Errorf("telemetry_interval_secs: must be greater than 0")
	}
	if c.MaxExecTimeoutSecs == 0 {
		return fmt.Errorf("max_exec_timeout_secs: must be greater than 0")
	}
	if c.MaxChunkSize <= 0 || c.MaxChunkSize > maxChunkSizeCeiling {
		return fmt.Errorf("max_chunk_size: must be between 1 and 10MiB")
	}

	level := strings.ToLower(c.LogLevel)
	valid := false
	for _, l := range validLogLevels {
		if level == l {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("log_level: must be one of %v", validLogLevels)
	}

	return nil
}

// DefaultDevicePaths returns the platform default virtio-serial device
// candidate list tried in order during discovery.
func DefaultDevicePaths() []string {
	if runtime.GOOS == "windows" {
		return []string{`\\.\Global\org.quantix.agent.0`}
	}
	return []string{
		"/dev/virtio-ports/org.quantix.agent.0",
		"/dev/virtio-ports/org.limiquantix.agent.0",
		"/dev/vport0p1",
		"/dev/vport1p1",
	}
}

// DevicePaths resolves the configured device_path to the concrete candidate
// list to probe: either the single explicit path, or the platform defaults
// when DevicePath is the "auto" sentinel.
func (c *Config) DevicePaths() []string {
	if c.DevicePath == "" || c.DevicePath == AutoDevicePath {
		return DefaultDevicePaths()
	}
	return []string{c.DevicePath}
}
