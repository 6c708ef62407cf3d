// Package control turns stick input into drone motion commands and keeps the
// console's view of the vehicle current.
//
// Two loops run side by side: DispatchLoop samples the input sources on a
// fixed period and submits at most one move command at a time, and
// StatePoller refreshes the cached vehicle snapshot that ActionGate reads.
package control

import (
	"math"

	"go.uber.org/atomic"
)

// Vector2 is a normalized 2-axis stick reading. Both components are in [-1, 1].
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp bounds both components to [-1, 1]. NaN becomes 0.
func (v Vector2) Clamp() Vector2 {
	return Vector2{X: clampUnit(v.X), Y: clampUnit(v.Y)}
}

func clampUnit(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Max(-1, math.Min(1, f))
}

// vectorCell holds the latest vector. One writer (the input transport), one
// reader (the dispatch tick); readers always see a whole vector.
type vectorCell struct {
	v *atomic.Pointer[Vector2]
}

func newVectorCell() vectorCell {
	return vectorCell{v: atomic.NewPointer(&Vector2{})}
}

func (c vectorCell) load() Vector2 {
	return *c.v.Load()
}

func (c vectorCell) store(v Vector2) {
	c.v.Store(&v)
}
