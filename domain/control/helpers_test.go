package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/atomic"

	"github.com/open-teleop/dronectl/pkg/remote"
)

var errTransport = errors.New("connection refused")

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

// recordingMover records every move and tracks how many run at once.
type recordingMover struct {
	calls     *atomic.Int64
	active    *atomic.Int64
	maxActive *atomic.Int64

	// latency and fail are consulted per call index, starting at 1.
	latency func(n int64) time.Duration
	fail    func(n int64) bool
	block   chan struct{}

	mu   sync.Mutex
	cmds []Command
}

func newRecordingMover() *recordingMover {
	return &recordingMover{
		calls:     atomic.NewInt64(0),
		active:    atomic.NewInt64(0),
		maxActive: atomic.NewInt64(0),
	}
}

func (m *recordingMover) Move(ctx context.Context, dx, dy, dz, yaw float64) error {
	n := m.calls.Inc()
	cur := m.active.Inc()
	defer m.active.Dec()
	for {
		prev := m.maxActive.Load()
		if cur <= prev || m.maxActive.CompareAndSwap(prev, cur) {
			break
		}
	}

	m.mu.Lock()
	m.cmds = append(m.cmds, Command{DX: dx, DY: dy, DZ: dz, Yaw: yaw})
	m.mu.Unlock()

	if m.block != nil {
		<-m.block
	}
	if m.latency != nil {
		time.Sleep(m.latency(n))
	}
	if m.fail != nil && m.fail(n) {
		return errTransport
	}
	return nil
}

func (m *recordingMover) commands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.cmds...)
}

type countingRefresher struct {
	n *atomic.Int64
}

func (r countingRefresher) Refresh() {
	r.n.Inc()
}

// staticFetcher answers every poll immediately.
type staticFetcher struct {
	calls *atomic.Int64
	state *atomic.Pointer[remote.VehicleState]
	err   error
}

func newStaticFetcher(state remote.VehicleState) *staticFetcher {
	return &staticFetcher{calls: atomic.NewInt64(0), state: atomic.NewPointer(&state)}
}

func (f *staticFetcher) GetState(ctx context.Context) (*remote.VehicleState, error) {
	f.calls.Inc()
	if f.err != nil {
		return nil, f.err
	}
	s := *f.state.Load()
	return &s, nil
}

// pendingPoll is one GetState call waiting for the test to answer it.
type pendingPoll struct {
	reply chan pollReply
}

type pollReply struct {
	state *remote.VehicleState
	err   error
}

// gatedFetcher hands each call to the test and blocks until it is answered.
type gatedFetcher struct {
	pending chan *pendingPoll
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{pending: make(chan *pendingPoll, 64)}
}

func (f *gatedFetcher) GetState(ctx context.Context) (*remote.VehicleState, error) {
	p := &pendingPoll{reply: make(chan pollReply, 1)}
	f.pending <- p
	r := <-p.reply
	return r.state, r.err
}

func (f *gatedFetcher) next(t *testing.T) *pendingPoll {
	t.Helper()
	select {
	case p := <-f.pending:
		return p
	case <-time.After(3 * time.Second):
		t.Fatal("no poll issued")
		return nil
	}
}
