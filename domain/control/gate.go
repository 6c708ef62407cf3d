package control

import (
	"errors"
	"fmt"

	"github.com/open-teleop/dronectl/pkg/remote"
)

// ErrUnknownAction is returned by ParseAction for names outside Actions.
var ErrUnknownAction = errors.New("unknown action")

// Action is a discrete vehicle command gated by the cached state.
type Action string

const (
	ActionArm     Action = "arm"
	ActionTakeoff Action = "takeoff"
	ActionLand    Action = "land"
	ActionDisarm  Action = "disarm"
)

// Actions lists every gated action in button order.
var Actions = []Action{ActionArm, ActionTakeoff, ActionLand, ActionDisarm}

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Permissions is the set of actions currently legal.
type Permissions struct {
	CanArm     bool `json:"can_arm"`
	CanTakeoff bool `json:"can_takeoff"`
	CanLand    bool `json:"can_land"`
	CanDisarm  bool `json:"can_disarm"`
}

// Allows reports whether a is permitted.
func (p Permissions) Allows(a Action) bool {
	switch a {
	case ActionArm:
		return p.CanArm
	case ActionTakeoff:
		return p.CanTakeoff
	case ActionLand:
		return p.CanLand
	case ActionDisarm:
		return p.CanDisarm
	}
	return false
}

// Evaluate derives permissions from a vehicle state. A nil state permits nothing.
func Evaluate(state *remote.VehicleState) Permissions {
	if state == nil {
		return Permissions{}
	}
	return Permissions{
		CanArm:     !state.Armed,
		CanTakeoff: state.Armed && !state.Flying,
		CanLand:    state.Flying,
		CanDisarm:  state.Armed,
	}
}

// ActionGate reads the shared cache to answer permission queries.
type ActionGate struct {
	cache *StateCache
}

// NewActionGate creates a gate over cache.
func NewActionGate(cache *StateCache) *ActionGate {
	return &ActionGate{cache: cache}
}

// Permissions evaluates the latest snapshot; all false until the first poll lands.
func (g *ActionGate) Permissions() Permissions {
	snap := g.cache.Load()
	if snap == nil {
		return Permissions{}
	}
	return Evaluate(&snap.State)
}

// Allows is shorthand for Permissions().Allows(a).
func (g *ActionGate) Allows(a Action) bool {
	return g.Permissions().Allows(a)
}
