package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrAlreadyRunning is returned when Start is called on a running loop.
var ErrAlreadyRunning = errors.New("loop already running")

// periodic owns the scheduling goroutine of a fixed-period loop.
type periodic struct {
	interval time.Duration
	clock    clock.Clock

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newPeriodic(interval time.Duration, clk clock.Clock) periodic {
	if clk == nil {
		clk = clock.New()
	}
	return periodic{interval: interval, clock: clk}
}

// start creates the ticker before returning, so a tick is due one interval
// after start regardless of goroutine scheduling.
func (p *periodic) start(parent context.Context, tick func(ctx context.Context)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil && p.ctx.Err() == nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(parent)
	ticker := p.clock.Ticker(p.interval)
	p.ctx, p.cancel = ctx, cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Stop may race with a pending tick; never run one after cancel.
				if ctx.Err() != nil {
					return
				}
				tick(ctx)
			}
		}
	}()
	return nil
}

// stop cancels scheduling and waits for the scheduling goroutine. Work the
// tick function spawned is not waited for.
func (p *periodic) stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// running returns the live loop context, or nil when stopped.
func (p *periodic) running() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil || p.ctx.Err() != nil {
		return nil
	}
	return p.ctx
}
