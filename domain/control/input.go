package control

import (
	"errors"
	"fmt"

	"go.uber.org/atomic"
)

// Source names.
const (
	SourceLeft  = "left"
	SourceRight = "right"
)

// Input event types carried by the websocket and gamepad bridge transports.
const (
	EventMove    = "move"
	EventRelease = "release"
	EventKeyDown = "keydown"
	EventKeyUp   = "keyup"
)

var (
	ErrUnknownSource    = errors.New("unknown input source")
	ErrUnknownEventType = errors.New("unknown input event type")
)

// keyVectors are the unit vectors of the D-pad arrow keys.
var keyVectors = map[string]Vector2{
	"ArrowUp":    {X: 0, Y: 1},
	"ArrowDown":  {X: 0, Y: -1},
	"ArrowLeft":  {X: -1, Y: 0},
	"ArrowRight": {X: 1, Y: 0},
}

// InputSource is one virtual stick. It only remembers the latest vector.
type InputSource struct {
	name    string
	invertY *atomic.Bool
	latest  vectorCell
}

// NewInputSource creates a stick at rest.
func NewInputSource(name string, invertY bool) *InputSource {
	return &InputSource{name: name, invertY: atomic.NewBool(invertY), latest: newVectorCell()}
}

// SetInvertY changes Y inversion for subsequent updates.
func (s *InputSource) SetInvertY(invert bool) {
	s.invertY.Store(invert)
}

// Name returns "left" or "right".
func (s *InputSource) Name() string {
	return s.name
}

// Update replaces the latest vector. Components are clamped to [-1, 1].
func (s *InputSource) Update(v Vector2) {
	v = v.Clamp()
	if s.invertY.Load() {
		v.Y = -v.Y
	}
	s.latest.store(v)
}

// Release returns the stick to neutral.
func (s *InputSource) Release() {
	s.latest.store(Vector2{})
}

// Latest returns the most recent vector.
func (s *InputSource) Latest() Vector2 {
	return s.latest.load()
}

// KeyDown applies a keyboard press. Arrow keys emit a unit vector, Space and
// Enter release. It reports whether the key was recognised.
func (s *InputSource) KeyDown(key string) bool {
	if v, ok := keyVectors[key]; ok {
		s.Update(v)
		return true
	}
	switch key {
	case " ", "Space", "Enter":
		s.Release()
		return true
	}
	return false
}

// KeyUp applies a keyboard release. Releasing an arrow returns to neutral.
func (s *InputSource) KeyUp(key string) bool {
	if _, ok := keyVectors[key]; ok {
		s.Release()
		return true
	}
	return false
}

// InputEvent is the wire form of a widget update.
type InputEvent struct {
	Source string  `json:"source"`
	Type   string  `json:"type"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Key    string  `json:"key,omitempty"`
}

// Inputs is the left/right pair consumed by the dispatch loop.
type Inputs struct {
	Left  *InputSource
	Right *InputSource
}

// NewInputs creates both sticks at rest.
func NewInputs(invertLeftY, invertRightY bool) *Inputs {
	return &Inputs{
		Left:  NewInputSource(SourceLeft, invertLeftY),
		Right: NewInputSource(SourceRight, invertRightY),
	}
}

// Source looks a stick up by name.
func (in *Inputs) Source(name string) (*InputSource, error) {
	switch name {
	case SourceLeft:
		return in.Left, nil
	case SourceRight:
		return in.Right, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
}

// Apply routes one event to its stick.
func (in *Inputs) Apply(ev InputEvent) error {
	src, err := in.Source(ev.Source)
	if err != nil {
		return err
	}

	switch ev.Type {
	case EventMove:
		src.Update(Vector2{X: ev.X, Y: ev.Y})
	case EventRelease:
		src.Release()
	case EventKeyDown:
		src.KeyDown(ev.Key)
	case EventKeyUp:
		src.KeyUp(ev.Key)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventType, ev.Type)
	}
	return nil
}

// ReleaseAll returns both sticks to neutral.
func (in *Inputs) ReleaseAll() {
	in.Left.Release()
	in.Right.Release()
}
