package control

import (
	"time"

	"go.uber.org/atomic"

	"github.com/open-teleop/dronectl/pkg/remote"
)

// Snapshot is an accepted poll result. Seq orders polls by issue time.
type Snapshot struct {
	State     remote.VehicleState `json:"state"`
	Seq       uint64              `json:"seq"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// StateCache holds the newest known snapshot. It is replaced whole, never mutated.
type StateCache struct {
	current *atomic.Pointer[Snapshot]
}

// NewStateCache returns an empty cache.
func NewStateCache() *StateCache {
	return &StateCache{current: atomic.NewPointer[Snapshot](nil)}
}

// Load returns the cached snapshot, or nil before the first accepted poll.
func (c *StateCache) Load() *Snapshot {
	return c.current.Load()
}

// Offer installs snap unless the cache already holds a snapshot from the same
// or a later poll. It reports whether snap was installed.
func (c *StateCache) Offer(snap *Snapshot) bool {
	for {
		cur := c.current.Load()
		if cur != nil && cur.Seq >= snap.Seq {
			return false
		}
		if c.current.CompareAndSwap(cur, snap) {
			return true
		}
	}
}
