package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	customlog "github.com/open-teleop/dronectl/pkg/log"
)

// Mover submits motion commands to the remote.
type Mover interface {
	Move(ctx context.Context, dx, dy, dz, yaw float64) error
}

// Refresher asks for an out-of-schedule state poll.
type Refresher interface {
	Refresh()
}

// DispatchStats tracks dispatch loop metrics
type DispatchStats struct {
	Ticks           int64  `json:"ticks"`
	Submitted       int64  `json:"submitted"`
	Failed          int64  `json:"failed"`
	Discarded       int64  `json:"discarded"`
	SkippedIdle     int64  `json:"skipped_idle"`
	SkippedInFlight int64  `json:"skipped_in_flight"`
	LatencyAvgUs    int64  `json:"latency_avg_us"`
	LatencyMaxUs    int64  `json:"latency_max_us"`
	LastError       string `json:"last_error,omitempty"`
}

// DispatchLoop samples both sticks every interval and submits the mapped
// command. At most one submission is outstanding; a tick that finds one in
// flight sends nothing.
type DispatchLoop struct {
	periodic

	inputs    *Inputs
	mapper    *atomic.Pointer[Mapper]
	mover     Mover
	refresher Refresher
	logger    customlog.Logger
	inFlight  *atomic.Bool
	onCommand func(Command)

	statsMu sync.Mutex
	stats   DispatchStats
}

// NewDispatchLoop creates a loop. refresher may be nil. A nil clock uses the wall clock.
func NewDispatchLoop(inputs *Inputs, mapper *Mapper, mover Mover, refresher Refresher, interval time.Duration, clk clock.Clock, logger customlog.Logger) *DispatchLoop {
	return &DispatchLoop{
		periodic:  newPeriodic(interval, clk),
		inputs:    inputs,
		mapper:    atomic.NewPointer(mapper),
		mover:     mover,
		refresher: refresher,
		logger:    logger,
		inFlight:  atomic.NewBool(false),
	}
}

// OnCommand registers fn to run after each successful submission. Set before Start.
func (d *DispatchLoop) OnCommand(fn func(Command)) {
	d.onCommand = fn
}

// SetMapper swaps the mapper used by subsequent ticks.
func (d *DispatchLoop) SetMapper(m *Mapper) {
	d.mapper.Store(m)
}

// Mapper returns the active mapper.
func (d *DispatchLoop) Mapper() *Mapper {
	return d.mapper.Load()
}

// Start begins ticking.
func (d *DispatchLoop) Start(ctx context.Context) error {
	if err := d.start(ctx, d.tick); err != nil {
		return err
	}
	d.logger.Infof("Dispatch loop started (interval %v, mode %s)", d.interval, d.Mapper().Config().Mode)
	return nil
}

// Stop halts ticking. A submission in flight is left to finish and its result dropped.
func (d *DispatchLoop) Stop() {
	d.stop()
	d.logStats()
}

// InFlight reports whether a submission is outstanding.
func (d *DispatchLoop) InFlight() bool {
	return d.inFlight.Load()
}

// Stats returns a copy of the current metrics
func (d *DispatchLoop) Stats() DispatchStats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.stats
}

func (d *DispatchLoop) tick(ctx context.Context) {
	d.count(func(s *DispatchStats) { s.Ticks++ })

	mapper := d.mapper.Load()
	cmd := mapper.Map(d.inputs.Left.Latest(), d.inputs.Right.Latest())
	if mapper.Trivial(cmd) {
		d.count(func(s *DispatchStats) { s.SkippedIdle++ })
		return
	}

	if !d.inFlight.CompareAndSwap(false, true) {
		d.count(func(s *DispatchStats) { s.SkippedInFlight++ })
		return
	}
	go d.submit(ctx, cmd)
}

func (d *DispatchLoop) submit(loopCtx context.Context, cmd Command) {
	defer d.inFlight.Store(false)

	start := d.clock.Now()
	err := d.mover.Move(context.WithoutCancel(loopCtx), cmd.DX, cmd.DY, cmd.DZ, cmd.Yaw)
	elapsed := d.clock.Since(start).Microseconds()

	if loopCtx.Err() != nil {
		d.count(func(s *DispatchStats) { s.Discarded++ })
		return
	}

	if err != nil {
		d.count(func(s *DispatchStats) {
			s.Failed++
			s.LastError = err.Error()
		})
		d.logger.Warnf("Move %+v failed: %v", cmd, err)
		return
	}

	d.count(func(s *DispatchStats) {
		s.Submitted++
		if s.LatencyAvgUs == 0 {
			s.LatencyAvgUs = elapsed
		} else {
			// Simple moving average
			s.LatencyAvgUs = (s.LatencyAvgUs + elapsed) / 2
		}
		if elapsed > s.LatencyMaxUs {
			s.LatencyMaxUs = elapsed
		}
	})
	d.logger.Debugf("Move %+v sent in %dµs", cmd, elapsed)

	if d.onCommand != nil {
		d.onCommand(cmd)
	}
	if d.refresher != nil {
		d.refresher.Refresh()
	}
}

func (d *DispatchLoop) count(update func(*DispatchStats)) {
	d.statsMu.Lock()
	update(&d.stats)
	d.statsMu.Unlock()
}

func (d *DispatchLoop) logStats() {
	s := d.Stats()
	d.logger.Infof("Dispatch loop stopped: ticks=%d, submitted=%d, failed=%d, idle=%d, busy=%d, avg_time=%dµs, max_time=%dµs",
		s.Ticks, s.Submitted, s.Failed, s.SkippedIdle, s.SkippedInFlight, s.LatencyAvgUs, s.LatencyMaxUs)
}
