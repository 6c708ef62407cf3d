package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BootstrapFileName is the file LoadBootstrapConfig reads from the config directory.
const BootstrapFileName = "dronectl_config.yaml"

// BaseURLEnv overrides remote.base_url when set.
const BaseURLEnv = "DRONE_API_BASE"

// Defaults applied when the bootstrap file leaves a value unset.
const (
	DefaultHTTPPort           = 8080
	DefaultRequestTimeoutMs   = 1000
	DefaultDispatchIntervalMs = 200
	DefaultPollIntervalMs     = 500
	DefaultEventWorkers       = 1
	DefaultEventQueueSize     = 256
)

// BootstrapConfig holds the initial configuration loaded from dronectl_config.yaml
type BootstrapConfig struct {
	Logging   LoggingConfig         `yaml:"logging"`
	Server    BootstrapServerConfig `yaml:"server"`
	Remote    RemoteConfig          `yaml:"remote"`
	Loops     LoopConfig            `yaml:"loops"`
	Data      DataConfig            `yaml:"data"`
	Telemetry TelemetryConfig       `yaml:"telemetry"`
	Journal   JournalConfig         `yaml:"journal"`
	Events    EventsConfig          `yaml:"events"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

// BootstrapServerConfig holds the operator API listener settings
type BootstrapServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// RemoteConfig identifies the remote control endpoint
type RemoteConfig struct {
	BaseURL          string `yaml:"base_url"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms"`
}

// LoopConfig holds the two fixed periods
type LoopConfig struct {
	DispatchIntervalMs int `yaml:"dispatch_interval_ms"`
	PollIntervalMs     int `yaml:"poll_interval_ms"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory       string `yaml:"directory"`
	ProfileFilename string `yaml:"profile_file"`
}

// TelemetryConfig configures the ZeroMQ snapshot publisher and the gamepad bridge input.
type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	PublishAddress string `yaml:"publish_address"`
	InputAddress   string `yaml:"input_address,omitempty"`
}

// JournalConfig configures the SQLite flight journal
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// EventsConfig sizes the pool that feeds telemetry and journal sinks
type EventsConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// LoadBootstrapConfig loads the bootstrap configuration from dronectl_config.yaml
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFileName)

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	var bootstrapCfg BootstrapConfig
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if base := strings.TrimSpace(os.Getenv(BaseURLEnv)); base != "" {
		bootstrapCfg.Remote.BaseURL = base
	}
	bootstrapCfg.applyDefaults()

	if err := bootstrapCfg.Validate(); err != nil {
		return nil, err
	}
	return &bootstrapCfg, nil
}

func (c *BootstrapConfig) applyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = DefaultHTTPPort
	}
	if c.Remote.RequestTimeoutMs == 0 {
		c.Remote.RequestTimeoutMs = DefaultRequestTimeoutMs
	}
	if c.Loops.DispatchIntervalMs == 0 {
		c.Loops.DispatchIntervalMs = DefaultDispatchIntervalMs
	}
	if c.Loops.PollIntervalMs == 0 {
		c.Loops.PollIntervalMs = DefaultPollIntervalMs
	}
	if c.Events.Workers == 0 {
		c.Events.Workers = DefaultEventWorkers
	}
	if c.Events.QueueSize == 0 {
		c.Events.QueueSize = DefaultEventQueueSize
	}
	c.Remote.BaseURL = strings.TrimRight(c.Remote.BaseURL, "/")
}

// Validate checks required fields and value ranges.
func (c *BootstrapConfig) Validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("missing required field in bootstrap config: remote.base_url (or %s)", BaseURLEnv)
	}
	if c.Data.Directory == "" {
		return fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if c.Data.ProfileFilename == "" {
		return fmt.Errorf("missing required field in bootstrap config: data.profile_file")
	}
	if c.Loops.DispatchIntervalMs < 20 || c.Loops.DispatchIntervalMs > 2000 {
		return fmt.Errorf("loops.dispatch_interval_ms must be between 20 and 2000, got %d", c.Loops.DispatchIntervalMs)
	}
	if c.Loops.PollIntervalMs < 20 || c.Loops.PollIntervalMs > 10000 {
		return fmt.Errorf("loops.poll_interval_ms must be between 20 and 10000, got %d", c.Loops.PollIntervalMs)
	}
	if c.Telemetry.Enabled && c.Telemetry.PublishAddress == "" {
		return fmt.Errorf("missing required field in bootstrap config: telemetry.publish_address")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("missing required field in bootstrap config: journal.path")
	}
	return nil
}

// ProfilePath returns the absolute location of the control profile file.
func (c *BootstrapConfig) ProfilePath() string {
	return filepath.Join(c.Data.Directory, c.Data.ProfileFilename)
}

// RequestTimeout returns the per-call timeout for the remote client.
func (c *BootstrapConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Remote.RequestTimeoutMs) * time.Millisecond
}

// DispatchInterval returns the DispatchLoop period.
func (c *BootstrapConfig) DispatchInterval() time.Duration {
	return time.Duration(c.Loops.DispatchIntervalMs) * time.Millisecond
}

// PollInterval returns the StatePoller period.
func (c *BootstrapConfig) PollInterval() time.Duration {
	return time.Duration(c.Loops.PollIntervalMs) * time.Millisecond
}
