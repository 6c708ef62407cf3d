package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/open-teleop/dronectl/pkg/config"
	customlog "github.com/open-teleop/dronectl/pkg/log"
)

const testProfile = `mode: discrete
deadband: 0.2
gains: {dx: 0.5, dy: 0.5, dz: 0.3, yaw: 0.25}
`

type recordingListener struct {
	applied []*config.Profile
	err     error
}

func (l *recordingListener) ApplyProfile(p *config.Profile) error {
	if l.err != nil {
		return l.err
	}
	l.applied = append(l.applied, p)
	return nil
}

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write profile: %v", err)
	}
	return path
}

func TestNewProfileService(t *testing.T) {
	path := writeProfile(t, testProfile)
	svc, err := NewProfileService(path, customlog.NewNopLogger())
	if err != nil {
		t.Fatalf("NewProfileService failed: %v", err)
	}

	p := svc.GetCurrentProfile()
	if p.Mode != config.ModeDiscrete || p.Gains.Yaw != 0.25 {
		t.Errorf("Unexpected profile: %+v", p)
	}

	listener := &recordingListener{}
	svc.SetListener(listener)
	if len(listener.applied) != 1 {
		t.Errorf("Expected current profile to be applied to new listener, got %d calls", len(listener.applied))
	}
}

func TestNewProfileServiceRequiresValidProfile(t *testing.T) {
	if _, err := NewProfileService(filepath.Join(t.TempDir(), "missing.yaml"), customlog.NewNopLogger()); err == nil {
		t.Error("Expected error for missing profile file")
	}
	if _, err := NewProfileService(writeProfile(t, "deadband: 0.2\n"), customlog.NewNopLogger()); err == nil {
		t.Error("Expected error for profile without mode")
	}
	if _, err := NewProfileService("", customlog.NewNopLogger()); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestUpdateProfile(t *testing.T) {
	path := writeProfile(t, testProfile)
	svc, err := NewProfileService(path, customlog.NewNopLogger())
	if err != nil {
		t.Fatalf("NewProfileService failed: %v", err)
	}
	listener := &recordingListener{}
	svc.SetListener(listener)

	update := []byte("mode: proportional\ndeadband: 0.05\ngains: {dx: 1, dy: 1, dz: 1, yaw: 1}\n")
	if err := svc.UpdateProfile(update); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	if svc.GetCurrentProfile().Mode != config.ModeProportional {
		t.Errorf("Expected proportional mode, got %s", svc.GetCurrentProfile().Mode)
	}
	if got := listener.applied[len(listener.applied)-1].Mode; got != config.ModeProportional {
		t.Errorf("Listener got mode %s", got)
	}

	onDisk, err := svc.GetCurrentProfileYAML()
	if err != nil {
		t.Fatalf("GetCurrentProfileYAML failed: %v", err)
	}
	if string(onDisk) != string(update) {
		t.Errorf("Profile not persisted, file contains:\n%s", onDisk)
	}
}

func TestUpdateProfileRejectsInvalid(t *testing.T) {
	path := writeProfile(t, testProfile)
	svc, err := NewProfileService(path, customlog.NewNopLogger())
	if err != nil {
		t.Fatalf("NewProfileService failed: %v", err)
	}

	for _, body := range []string{
		"mode: [unclosed",
		"deadband: 0.1\n",
		"mode: discrete\nmapping: {dx: left_x, dy: left_x}\n",
	} {
		err := svc.UpdateProfile([]byte(body))
		if !errors.Is(err, ErrInvalidProfile) {
			t.Errorf("Expected ErrInvalidProfile for %q, got %v", body, err)
		}
	}

	listener := &recordingListener{err: errors.New("refused")}
	svc.SetListener(listener)
	if err := svc.UpdateProfile([]byte("mode: proportional\ngains: {dx: 1}\n")); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("Expected listener failure to surface as ErrInvalidProfile, got %v", err)
	}

	onDisk, _ := os.ReadFile(path)
	if string(onDisk) != testProfile {
		t.Errorf("Rejected update must not touch the file, got:\n%s", onDisk)
	}
	if svc.GetCurrentProfile().Mode != config.ModeDiscrete {
		t.Errorf("Rejected update must not change the current profile")
	}
}
