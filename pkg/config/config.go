package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Control modes. Each matches one of the two operator pages: the D-pad page
// sends bang-bang commands, the joystick page sends proportional ones.
const (
	ModeDiscrete     = "discrete"
	ModeProportional = "proportional"
)

// Input axis names usable in a mapping.
const (
	AxisLeftX  = "left_x"
	AxisLeftY  = "left_y"
	AxisRightX = "right_x"
	AxisRightY = "right_y"
)

// Profile represents the control profile: how stick input becomes a command.
type Profile struct {
	Mode     string       `yaml:"mode" json:"mode"`
	Deadband float64      `yaml:"deadband" json:"deadband"`
	Epsilon  float64      `yaml:"epsilon" json:"epsilon"`
	Gains    AxisValues   `yaml:"gains" json:"gains"`
	Limits   AxisValues   `yaml:"limits" json:"limits"`
	Mapping  AxisMapping  `yaml:"mapping" json:"mapping"`
	InvertY  InvertConfig `yaml:"invert_y" json:"invert_y"`
}

// AxisValues holds one value per command degree of freedom.
type AxisValues struct {
	DX  float64 `yaml:"dx" json:"dx"`
	DY  float64 `yaml:"dy" json:"dy"`
	DZ  float64 `yaml:"dz" json:"dz"`
	Yaw float64 `yaml:"yaw" json:"yaw"`
}

// AxisMapping names the input axis that drives each command degree of freedom.
type AxisMapping struct {
	DX  string `yaml:"dx" json:"dx"`
	DY  string `yaml:"dy" json:"dy"`
	DZ  string `yaml:"dz" json:"dz"`
	Yaw string `yaml:"yaw" json:"yaw"`
}

// InvertConfig flips the Y axis of an input source.
type InvertConfig struct {
	Left  bool `yaml:"left" json:"left"`
	Right bool `yaml:"right" json:"right"`
}

// DefaultMapping is left stick = vertical + yaw, right stick = horizontal plane.
func DefaultMapping() AxisMapping {
	return AxisMapping{
		DX:  AxisRightX,
		DY:  AxisRightY,
		DZ:  AxisLeftY,
		Yaw: AxisLeftX,
	}
}

// LoadProfile loads a control profile from the specified file path
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading profile file: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes and validates profile YAML.
func ParseProfile(data []byte) (*Profile, error) {
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("error parsing profile: %w", err)
	}
	profile.applyDefaults()
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (p *Profile) applyDefaults() {
	def := DefaultMapping()
	if p.Mapping.DX == "" {
		p.Mapping.DX = def.DX
	}
	if p.Mapping.DY == "" {
		p.Mapping.DY = def.DY
	}
	if p.Mapping.DZ == "" {
		p.Mapping.DZ = def.DZ
	}
	if p.Mapping.Yaw == "" {
		p.Mapping.Yaw = def.Yaw
	}
	// The remote accepts [-1, 1] on every axis.
	if p.Limits == (AxisValues{}) {
		p.Limits = AxisValues{DX: 1, DY: 1, DZ: 1, Yaw: 1}
	}
}

// Validate checks the profile. The mode has no default: a profile must pick one.
func (p *Profile) Validate() error {
	switch p.Mode {
	case ModeDiscrete, ModeProportional:
	case "":
		return fmt.Errorf("missing required field in profile: mode (%s or %s)", ModeDiscrete, ModeProportional)
	default:
		return fmt.Errorf("unknown mode %q in profile", p.Mode)
	}
	if p.Deadband < 0 || p.Deadband >= 1 {
		return fmt.Errorf("deadband must be in [0, 1), got %v", p.Deadband)
	}
	if p.Epsilon < 0 {
		return fmt.Errorf("epsilon must not be negative, got %v", p.Epsilon)
	}
	for name, v := range map[string]float64{"dx": p.Gains.DX, "dy": p.Gains.DY, "dz": p.Gains.DZ, "yaw": p.Gains.Yaw} {
		if v < 0 {
			return fmt.Errorf("gains.%s must not be negative, got %v", name, v)
		}
	}
	if p.Gains == (AxisValues{}) {
		return fmt.Errorf("gains are all zero: every command would be dropped")
	}
	for name, v := range map[string]float64{"dx": p.Limits.DX, "dy": p.Limits.DY, "dz": p.Limits.DZ, "yaw": p.Limits.Yaw} {
		if v <= 0 {
			return fmt.Errorf("limits.%s must be positive, got %v", name, v)
		}
	}

	seen := make(map[string]string, 4)
	for dof, axis := range map[string]string{"dx": p.Mapping.DX, "dy": p.Mapping.DY, "dz": p.Mapping.DZ, "yaw": p.Mapping.Yaw} {
		switch axis {
		case AxisLeftX, AxisLeftY, AxisRightX, AxisRightY:
		default:
			return fmt.Errorf("unknown axis %q for mapping.%s", axis, dof)
		}
		if other, dup := seen[axis]; dup {
			return fmt.Errorf("axis %q mapped to both mapping.%s and mapping.%s", axis, other, dof)
		}
		seen[axis] = dof
	}
	return nil
}

// Marshal renders the profile back to YAML.
func (p *Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}
