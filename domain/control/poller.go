package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	customlog "github.com/open-teleop/dronectl/pkg/log"
	"github.com/open-teleop/dronectl/pkg/remote"
)

// StateFetcher reads the vehicle state from the remote.
type StateFetcher interface {
	GetState(ctx context.Context) (*remote.VehicleState, error)
}

// PollerStats counts poll outcomes.
type PollerStats struct {
	Issued    int64 `json:"issued"`
	Accepted  int64 `json:"accepted"`
	Stale     int64 `json:"stale"`
	Failed    int64 `json:"failed"`
	Discarded int64 `json:"discarded"`
}

// StatePoller keeps a StateCache in step with the remote vehicle. Polls may
// overlap; the cache only moves forward in issue order.
type StatePoller struct {
	periodic

	fetcher StateFetcher
	cache   *StateCache
	logger  customlog.Logger
	seq     *atomic.Uint64

	subMu       sync.RWMutex
	subscribers []func(*Snapshot)

	statsMu sync.Mutex
	stats   PollerStats
}

// NewStatePoller creates a poller that writes into cache every interval.
// A nil clock uses the wall clock.
func NewStatePoller(fetcher StateFetcher, cache *StateCache, interval time.Duration, clk clock.Clock, logger customlog.Logger) *StatePoller {
	return &StatePoller{
		periodic: newPeriodic(interval, clk),
		fetcher:  fetcher,
		cache:    cache,
		logger:   logger,
		seq:      atomic.NewUint64(0),
	}
}

// OnSnapshot registers fn to run after each snapshot the cache accepts.
func (p *StatePoller) OnSnapshot(fn func(*Snapshot)) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

// Start begins polling. The first poll is issued immediately.
func (p *StatePoller) Start(ctx context.Context) error {
	if err := p.start(ctx, p.tick); err != nil {
		return err
	}
	p.logger.Infof("State poller started (interval %v)", p.interval)
	p.Refresh()
	return nil
}

// Stop halts polling. Polls still in flight finish and are discarded.
func (p *StatePoller) Stop() {
	p.stop()
	p.logger.Infof("State poller stopped")
}

// Refresh issues one poll outside the schedule. It does nothing when stopped.
func (p *StatePoller) Refresh() {
	ctx := p.running()
	if ctx == nil {
		return
	}
	p.tick(ctx)
}

// Stats returns a copy of the counters.
func (p *StatePoller) Stats() PollerStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

func (p *StatePoller) tick(ctx context.Context) {
	seq := p.seq.Inc()
	p.count(func(s *PollerStats) { s.Issued++ })
	go p.poll(ctx, seq)
}

// poll runs one fetch. The request outlives loop cancellation so a stopped
// loop never aborts a call half way; its result is dropped instead.
func (p *StatePoller) poll(loopCtx context.Context, seq uint64) {
	state, err := p.fetcher.GetState(context.WithoutCancel(loopCtx))

	if loopCtx.Err() != nil {
		p.count(func(s *PollerStats) { s.Discarded++ })
		return
	}
	if err != nil {
		p.count(func(s *PollerStats) { s.Failed++ })
		p.logger.Warnf("State poll %d failed, keeping previous snapshot: %v", seq, err)
		return
	}

	snap := &Snapshot{State: *state, Seq: seq, FetchedAt: p.clock.Now()}
	if !p.cache.Offer(snap) {
		p.count(func(s *PollerStats) { s.Stale++ })
		p.logger.Debugf("State poll %d resolved after a newer poll, dropped", seq)
		return
	}
	p.count(func(s *PollerStats) { s.Accepted++ })

	p.subMu.RLock()
	subs := p.subscribers
	p.subMu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (p *StatePoller) count(update func(*PollerStats)) {
	p.statsMu.Lock()
	update(&p.stats)
	p.statsMu.Unlock()
}
