package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadProfile(t *testing.T) {
	tempDir := t.TempDir()

	profileContent := `
# Joystick page profile
mode: "proportional"
deadband: 0.2
epsilon: 0.01
gains:
  dx: 0.6
  dy: 0.6
  dz: 0.5
  yaw: 0.25
mapping:
  dx: right_y
  dy: right_x
invert_y:
  right: true
`
	profilePath := filepath.Join(tempDir, "profile.yaml")
	if err := os.WriteFile(profilePath, []byte(profileContent), 0644); err != nil {
		t.Fatalf("Failed to write test profile: %v", err)
	}

	profile, err := LoadProfile(profilePath)
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}

	if profile.Mode != ModeProportional {
		t.Errorf("Expected mode proportional, got %s", profile.Mode)
	}
	if profile.Deadband != 0.2 {
		t.Errorf("Expected deadband 0.2, got %v", profile.Deadband)
	}
	if profile.Gains.Yaw != 0.25 {
		t.Errorf("Expected yaw gain 0.25, got %v", profile.Gains.Yaw)
	}

	// Explicit entries win, missing entries fall back to the default mapping.
	if profile.Mapping.DX != AxisRightY || profile.Mapping.DY != AxisRightX {
		t.Errorf("Expected swapped horizontal mapping, got %+v", profile.Mapping)
	}
	if profile.Mapping.DZ != AxisLeftY || profile.Mapping.Yaw != AxisLeftX {
		t.Errorf("Expected default vertical/yaw mapping, got %+v", profile.Mapping)
	}

	if profile.Limits != (AxisValues{DX: 1, DY: 1, DZ: 1, Yaw: 1}) {
		t.Errorf("Expected unit transport limits by default, got %+v", profile.Limits)
	}
	if !profile.InvertY.Right || profile.InvertY.Left {
		t.Errorf("Expected only right Y inverted, got %+v", profile.InvertY)
	}
}

func TestParseProfileRequiresMode(t *testing.T) {
	_, err := ParseProfile([]byte("deadband: 0.2\n"))
	if err == nil {
		t.Fatalf("Expected error for profile without mode")
	}
	if !strings.Contains(err.Error(), "missing required field in profile: mode") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestParseProfileRejectsInvalidValues(t *testing.T) {
	const gains = "gains: {dx: 1, dy: 1, dz: 1, yaw: 1}\n"
	cases := map[string]string{
		"unknown mode":     "mode: turbo\n" + gains,
		"deadband too big": "mode: discrete\ndeadband: 1.0\n" + gains,
		"negative gain":    "mode: discrete\ngains: {dx: -1, dy: 1}\n",
		"zero limit":       "mode: discrete\nlimits: {dx: 1, dy: 1, dz: 0, yaw: 1}\n" + gains,
		"unknown axis":     "mode: discrete\nmapping: {dx: middle_x}\n" + gains,
		"duplicate axis":   "mode: discrete\nmapping: {dx: left_x}\n" + gains,
		"all-zero gains":   "mode: discrete\ndeadband: 0.2\n",
	}

	for name, content := range cases {
		if _, err := ParseProfile([]byte(content)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}

	_, err := ParseProfile([]byte("mode: proportional\ngains: {dz: 0.5}\n"))
	if err != nil {
		t.Errorf("A single non-zero gain should be accepted, got %v", err)
	}
}

func TestProfileMarshalRoundTrip(t *testing.T) {
	profile, err := ParseProfile([]byte("mode: discrete\ndeadband: 0.2\ngains: {dx: 1, dy: 1, dz: 1, yaw: 0.25}\n"))
	if err != nil {
		t.Fatalf("ParseProfile failed: %v", err)
	}

	data, err := profile.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	again, err := ParseProfile(data)
	if err != nil {
		t.Fatalf("ParseProfile of marshalled profile failed: %v", err)
	}
	if *again != *profile {
		t.Errorf("Expected %+v after round trip, got %+v", profile, again)
	}
}

func TestLoadBootstrapConfig(t *testing.T) {
	t.Setenv(BaseURLEnv, "")
	tempDir := t.TempDir()

	bootstrapContent := `
logging:
  level: "debug"
  log_path: "/var/log/dronectl"
server:
  http_port: 9090
remote:
  base_url: "http://sim.local:8000/"
  request_timeout_ms: 750
loops:
  dispatch_interval_ms: 100
data:
  directory: "/data/dronectl"
  profile_file: "dpad.yaml"
telemetry:
  enabled: true
  publish_address: "tcp://*:7777"
journal:
  enabled: true
  path: "/data/dronectl/journal.db"
events:
  queue_size: 64
`
	configPath := filepath.Join(tempDir, BootstrapFileName)
	if err := os.WriteFile(configPath, []byte(bootstrapContent), 0644); err != nil {
		t.Fatalf("Failed to write test bootstrap config: %v", err)
	}

	bootstrapCfg, err := LoadBootstrapConfig(tempDir)
	if err != nil {
		t.Fatalf("LoadBootstrapConfig failed: %v", err)
	}

	if bootstrapCfg.Logging.Level != "debug" {
		t.Errorf("Expected logging level 'debug', got '%s'", bootstrapCfg.Logging.Level)
	}
	if bootstrapCfg.Server.HTTPPort != 9090 {
		t.Errorf("Expected server http_port 9090, got %d", bootstrapCfg.Server.HTTPPort)
	}
	if bootstrapCfg.Remote.BaseURL != "http://sim.local:8000" {
		t.Errorf("Expected trailing slash trimmed from base_url, got '%s'", bootstrapCfg.Remote.BaseURL)
	}
	if bootstrapCfg.RequestTimeout() != 750*time.Millisecond {
		t.Errorf("Expected request timeout 750ms, got %v", bootstrapCfg.RequestTimeout())
	}
	if bootstrapCfg.DispatchInterval() != 100*time.Millisecond {
		t.Errorf("Expected dispatch interval 100ms, got %v", bootstrapCfg.DispatchInterval())
	}
	if bootstrapCfg.PollInterval() != DefaultPollIntervalMs*time.Millisecond {
		t.Errorf("Expected default poll interval, got %v", bootstrapCfg.PollInterval())
	}
	if bootstrapCfg.ProfilePath() != filepath.Join("/data/dronectl", "dpad.yaml") {
		t.Errorf("Unexpected profile path '%s'", bootstrapCfg.ProfilePath())
	}
	if bootstrapCfg.Events.Workers != DefaultEventWorkers || bootstrapCfg.Events.QueueSize != 64 {
		t.Errorf("Unexpected event pool settings %+v", bootstrapCfg.Events)
	}
	if !bootstrapCfg.Journal.Enabled || bootstrapCfg.Journal.Path != "/data/dronectl/journal.db" {
		t.Errorf("Unexpected journal settings %+v", bootstrapCfg.Journal)
	}
}

func TestLoadBootstrapConfigEnvOverridesBaseURL(t *testing.T) {
	tempDir := t.TempDir()
	content := `
data:
  directory: "/data"
  profile_file: "profile.yaml"
`
	if err := os.WriteFile(filepath.Join(tempDir, BootstrapFileName), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test bootstrap config: %v", err)
	}

	t.Setenv(BaseURLEnv, "http://10.0.0.5:8000")
	bootstrapCfg, err := LoadBootstrapConfig(tempDir)
	if err != nil {
		t.Fatalf("LoadBootstrapConfig failed: %v", err)
	}
	if bootstrapCfg.Remote.BaseURL != "http://10.0.0.5:8000" {
		t.Errorf("Expected env base url, got '%s'", bootstrapCfg.Remote.BaseURL)
	}
	if bootstrapCfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("Expected default port, got %d", bootstrapCfg.Server.HTTPPort)
	}
}

// Test case for missing required fields validation in LoadBootstrapConfig
func TestLoadBootstrapConfigMissingRequired(t *testing.T) {
	t.Setenv(BaseURLEnv, "")
	tempDir := t.TempDir()

	bootstrapContentMissing := `
logging:
  level: "info"
data:
  directory: "/data"
  profile_file: "profile.yaml"
`
	configPath := filepath.Join(tempDir, BootstrapFileName)
	if err := os.WriteFile(configPath, []byte(bootstrapContentMissing), 0644); err != nil {
		t.Fatalf("Failed to write test bootstrap config: %v", err)
	}

	_, err := LoadBootstrapConfig(tempDir)
	if err == nil {
		t.Fatalf("Expected error when loading bootstrap config without base url, but got nil")
	}

	expectedErrorSubstr := "missing required field in bootstrap config: remote.base_url"
	if !strings.Contains(err.Error(), expectedErrorSubstr) {
		t.Errorf("Expected error message to contain '%s', but got: %v", expectedErrorSubstr, err)
	}
}

func TestBootstrapValidateIntervals(t *testing.T) {
	cfg := &BootstrapConfig{
		Remote: RemoteConfig{BaseURL: "http://localhost:8000"},
		Data:   DataConfig{Directory: "/data", ProfileFilename: "p.yaml"},
		Loops:  LoopConfig{DispatchIntervalMs: 5, PollIntervalMs: 500},
	}
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected dispatch interval below 20ms to be rejected")
	}

	cfg.Loops.DispatchIntervalMs = 200
	cfg.Telemetry.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected enabled telemetry without publish address to be rejected")
	}
}
