package remote

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedState is returned when a state payload lacks the fields the console depends on.
var ErrMalformedState = errors.New("malformed vehicle state")

// VehicleState is one snapshot of the remote vehicle as reported by /api/control/state.
type VehicleState struct {
	Armed  bool `json:"armed"`
	Flying bool `json:"flying"`
	// Telemetry keeps every other field of the payload untouched.
	Telemetry map[string]json.RawMessage `json:"telemetry,omitempty"`
}

// DecodeVehicleState parses a state payload. Both "armed" and "flying" must be
// present booleans.
func DecodeVehicleState(data []byte) (*VehicleState, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrMalformedState)
	}

	state := &VehicleState{}
	if err := decodeBool(fields, "armed", &state.Armed); err != nil {
		return nil, err
	}
	if err := decodeBool(fields, "flying", &state.Flying); err != nil {
		return nil, err
	}
	delete(fields, "armed")
	delete(fields, "flying")
	if len(fields) > 0 {
		state.Telemetry = fields
	}
	return state, nil
}

func decodeBool(fields map[string]json.RawMessage, key string, dst *bool) error {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return fmt.Errorf("%w: missing %q", ErrMalformedState, key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: field %q: %v", ErrMalformedState, key, err)
	}
	return nil
}

// MoveCommand is the body of POST /api/control/move.
type MoveCommand struct {
	DX  float64 `json:"dx"`
	DY  float64 `json:"dy"`
	DZ  float64 `json:"dz"`
	Yaw float64 `json:"yaw"`
}
