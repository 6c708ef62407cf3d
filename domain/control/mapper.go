package control

import (
	"fmt"
	"math"

	"github.com/open-teleop/dronectl/pkg/config"
)

// Mode selects how a stick deflection becomes a command magnitude.
type Mode int

const (
	// ModeDiscrete reduces every deflection past the deadband to its sign.
	ModeDiscrete Mode = iota + 1
	// ModeProportional keeps the deflection magnitude.
	ModeProportional
)

func (m Mode) String() string {
	switch m {
	case ModeDiscrete:
		return config.ModeDiscrete
	case ModeProportional:
		return config.ModeProportional
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a profile mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case config.ModeDiscrete:
		return ModeDiscrete, nil
	case config.ModeProportional:
		return ModeProportional, nil
	}
	return 0, fmt.Errorf("unknown control mode %q", s)
}

// Axis identifies one input scalar.
type Axis int

const (
	AxisLeftX Axis = iota + 1
	AxisLeftY
	AxisRightX
	AxisRightY
)

// ParseAxis converts a profile axis name.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case config.AxisLeftX:
		return AxisLeftX, nil
	case config.AxisLeftY:
		return AxisLeftY, nil
	case config.AxisRightX:
		return AxisRightX, nil
	case config.AxisRightY:
		return AxisRightY, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

func (a Axis) pick(left, right Vector2) float64 {
	switch a {
	case AxisLeftX:
		return left.X
	case AxisLeftY:
		return left.Y
	case AxisRightX:
		return right.X
	case AxisRightY:
		return right.Y
	}
	return 0
}

// Mapping names the input axis behind each command field.
type Mapping struct {
	DX, DY, DZ, Yaw Axis
}

// DefaultMapping: left stick drives altitude and yaw, right stick the horizontal plane.
var DefaultMapping = Mapping{DX: AxisRightX, DY: AxisRightY, DZ: AxisLeftY, Yaw: AxisLeftX}

// AxisValues holds one value per command field.
type AxisValues struct {
	DX, DY, DZ, Yaw float64
}

// UnitLimits is the range the remote move endpoint accepts on every axis.
var UnitLimits = AxisValues{DX: 1, DY: 1, DZ: 1, Yaw: 1}

// MapperConfig parameterizes a Mapper.
type MapperConfig struct {
	Mode     Mode
	Deadband float64
	// Epsilon is the command norm below which the dispatch loop sends nothing.
	Epsilon float64
	Gains   AxisValues
	Limits  AxisValues
	Mapping Mapping
}

// Command is one 4-DOF motion request.
type Command struct {
	DX  float64 `json:"dx"`
	DY  float64 `json:"dy"`
	DZ  float64 `json:"dz"`
	Yaw float64 `json:"yaw"`
}

// Norm is the Euclidean norm of the four fields.
func (c Command) Norm() float64 {
	return math.Sqrt(c.DX*c.DX + c.DY*c.DY + c.DZ*c.DZ + c.Yaw*c.Yaw)
}

// IsZero reports whether every field is exactly zero.
func (c Command) IsZero() bool {
	return c.DX == 0 && c.DY == 0 && c.DZ == 0 && c.Yaw == 0
}

// Mapper is an immutable stick-to-command translation.
type Mapper struct {
	cfg MapperConfig
}

// NewMapper builds a mapper. A zero Mapping falls back to DefaultMapping and
// zero Limits to UnitLimits. Mode has no fallback: the caller must pick one,
// and a mapper without a valid mode only produces zero commands.
func NewMapper(cfg MapperConfig) *Mapper {
	if cfg.Mapping == (Mapping{}) {
		cfg.Mapping = DefaultMapping
	}
	if cfg.Limits == (AxisValues{}) {
		cfg.Limits = UnitLimits
	}
	return &Mapper{cfg: cfg}
}

// NewMapperFromProfile builds a mapper from a validated control profile.
func NewMapperFromProfile(p *config.Profile) (*Mapper, error) {
	mode, err := ParseMode(p.Mode)
	if err != nil {
		return nil, err
	}

	var mapping Mapping
	for _, f := range []struct {
		dst  *Axis
		name string
	}{
		{&mapping.DX, p.Mapping.DX},
		{&mapping.DY, p.Mapping.DY},
		{&mapping.DZ, p.Mapping.DZ},
		{&mapping.Yaw, p.Mapping.Yaw},
	} {
		if *f.dst, err = ParseAxis(f.name); err != nil {
			return nil, err
		}
	}

	return NewMapper(MapperConfig{
		Mode:     mode,
		Deadband: p.Deadband,
		Epsilon:  p.Epsilon,
		Gains:    AxisValues{DX: p.Gains.DX, DY: p.Gains.DY, DZ: p.Gains.DZ, Yaw: p.Gains.Yaw},
		Limits:   AxisValues{DX: p.Limits.DX, DY: p.Limits.DY, DZ: p.Limits.DZ, Yaw: p.Limits.Yaw},
		Mapping:  mapping,
	}), nil
}

// Config returns a copy of the mapper's parameters.
func (m *Mapper) Config() MapperConfig {
	return m.cfg
}

// Map converts the two stick readings into a command.
func (m *Mapper) Map(left, right Vector2) Command {
	c := m.cfg
	return Command{
		DX:  m.axis(c.Mapping.DX.pick(left, right), c.Gains.DX, c.Limits.DX),
		DY:  m.axis(c.Mapping.DY.pick(left, right), c.Gains.DY, c.Limits.DY),
		DZ:  m.axis(c.Mapping.DZ.pick(left, right), c.Gains.DZ, c.Limits.DZ),
		Yaw: m.axis(c.Mapping.Yaw.pick(left, right), c.Gains.Yaw, c.Limits.Yaw),
	}
}

// Trivial reports whether cmd is too small to be worth sending.
func (m *Mapper) Trivial(cmd Command) bool {
	return cmd.IsZero() || cmd.Norm() < m.cfg.Epsilon
}

func (m *Mapper) axis(v, gain, limit float64) float64 {
	v = clampUnit(v)
	if math.Abs(v) < m.cfg.Deadband || v == 0 {
		return 0
	}
	switch m.cfg.Mode {
	case ModeDiscrete:
		v = math.Copysign(1, v)
	case ModeProportional:
	default:
		return 0
	}
	return math.Max(-limit, math.Min(limit, v*gain))
}
