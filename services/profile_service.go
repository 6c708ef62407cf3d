package services

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/open-teleop/dronectl/pkg/config"
	customlog "github.com/open-teleop/dronectl/pkg/log"
)

// ErrInvalidProfile wraps every rejection of a submitted profile.
var ErrInvalidProfile = errors.New("invalid control profile")

// ProfileListener is told about every profile that becomes current.
type ProfileListener interface {
	ApplyProfile(p *config.Profile) error
}

// ProfileService manages the control profile: the file on disk and the copy
// the control loops run with.
type ProfileService interface {
	LoadProfile() error
	GetCurrentProfile() *config.Profile
	GetCurrentProfileYAML() ([]byte, error)
	UpdateProfile(newProfileYAML []byte) error
	SetListener(l ProfileListener)
}

type profileService struct {
	profilePath    string
	logger         customlog.Logger
	listener       ProfileListener
	currentProfile *config.Profile
	mu             sync.RWMutex
}

// NewProfileService loads the profile at profilePath. Unlike most settings the
// control mode has no default, so a missing or invalid profile is an error.
func NewProfileService(profilePath string, logger customlog.Logger) (ProfileService, error) {
	if profilePath == "" {
		return nil, fmt.Errorf("profile path cannot be empty")
	}

	service := &profileService{
		profilePath: profilePath,
		logger:      logger,
	}
	if err := service.LoadProfile(); err != nil {
		return nil, err
	}

	logger.Infof("ProfileService initialized for path: %s", profilePath)
	return service, nil
}

// LoadProfile reads the profile file from disk and makes it current.
func (s *profileService) LoadProfile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Loading control profile from: %s", s.profilePath)
	profile, err := config.LoadProfile(s.profilePath)
	if err != nil {
		return fmt.Errorf("loading control profile '%s': %w", s.profilePath, err)
	}

	if s.listener != nil {
		if err := s.listener.ApplyProfile(profile); err != nil {
			return fmt.Errorf("applying control profile: %w", err)
		}
	}
	s.currentProfile = profile
	s.logger.Infof("Loaded control profile (mode %s)", profile.Mode)
	return nil
}

// GetCurrentProfile returns the active profile. Treat it as read-only.
func (s *profileService) GetCurrentProfile() *config.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentProfile
}

// GetCurrentProfileYAML returns the profile file as stored on disk.
func (s *profileService) GetCurrentProfileYAML() ([]byte, error) {
	s.logger.Debugf("Reading control profile YAML from: %s", s.profilePath)
	data, err := os.ReadFile(s.profilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading profile file '%s': %w", s.profilePath, err)
	}
	return data, nil
}

// UpdateProfile validates, applies, and persists a new profile. Nothing
// changes if any step fails.
func (s *profileService) UpdateProfile(newProfileYAML []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newProfile, err := config.ParseProfile(newProfileYAML)
	if err != nil {
		s.logger.Warnf("Rejected control profile: %v", err)
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	if s.listener != nil {
		if err := s.listener.ApplyProfile(newProfile); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
	}

	if err := s.persistProfileUnlocked(newProfileYAML); err != nil {
		if s.listener != nil && s.currentProfile != nil {
			if rbErr := s.listener.ApplyProfile(s.currentProfile); rbErr != nil {
				s.logger.Errorf("Restoring previous control profile failed: %v", rbErr)
			}
		}
		return err
	}

	old := "none"
	if s.currentProfile != nil {
		old = s.currentProfile.Mode
	}
	s.currentProfile = newProfile
	s.logger.Infof("Control profile updated and persisted (mode %s -> %s)", old, newProfile.Mode)
	return nil
}

func (s *profileService) persistProfileUnlocked(yamlData []byte) error {
	s.logger.Infof("Persisting control profile to: %s", s.profilePath)
	if err := os.WriteFile(s.profilePath, yamlData, 0644); err != nil {
		s.logger.Errorf("Error writing profile file '%s': %v", s.profilePath, err)
		return fmt.Errorf("error writing profile file '%s': %w", s.profilePath, err)
	}
	return nil
}

// SetListener installs l and applies the current profile to it.
func (s *profileService) SetListener(l ProfileListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
	if l != nil && s.currentProfile != nil {
		if err := l.ApplyProfile(s.currentProfile); err != nil {
			s.logger.Errorf("Applying current control profile to listener: %v", err)
		}
	}
}
