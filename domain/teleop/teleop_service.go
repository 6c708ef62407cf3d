// Package teleop wires the control core to the remote vehicle: it owns the
// dispatch loop and the state poller, gates discrete actions and emits
// console events.
package teleop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/open-teleop/dronectl/domain/control"
	"github.com/open-teleop/dronectl/pkg/config"
	customlog "github.com/open-teleop/dronectl/pkg/log"
	"github.com/open-teleop/dronectl/pkg/processing"
)

// ErrActionNotPermitted is returned by Perform when the cached vehicle state
// does not allow the action, including before the first successful poll.
var ErrActionNotPermitted = errors.New("action not permitted in current vehicle state")

// Remote is the vehicle control endpoint.
type Remote interface {
	control.Mover
	control.StateFetcher
	Ping(ctx context.Context) (json.RawMessage, error)
	Arm(ctx context.Context) error
	Disarm(ctx context.Context) error
	Takeoff(ctx context.Context) error
	Land(ctx context.Context) error
}

// EventSink accepts console events without blocking.
type EventSink interface {
	Submit(msg *processing.Message) bool
}

// Options tunes the service loops.
type Options struct {
	DispatchInterval time.Duration
	PollInterval     time.Duration
	// Clock drives both loops; nil means the wall clock.
	Clock clock.Clock
}

// Service runs a teleoperation session against one remote vehicle.
type Service struct {
	remote   Remote
	inputs   *control.Inputs
	cache    *control.StateCache
	gate     *control.ActionGate
	poller   *control.StatePoller
	dispatch *control.DispatchLoop
	events   EventSink
	logger   customlog.Logger

	mu      sync.Mutex
	running bool
}

// NewService creates a stopped service. events may be nil.
func NewService(remote Remote, inputs *control.Inputs, mapper *control.Mapper, opts Options, events EventSink, logger customlog.Logger) *Service {
	cache := control.NewStateCache()
	poller := control.NewStatePoller(remote, cache, opts.PollInterval, opts.Clock, logger.WithField("loop", "poll"))
	dispatch := control.NewDispatchLoop(inputs, mapper, remote, poller, opts.DispatchInterval, opts.Clock, logger.WithField("loop", "dispatch"))

	s := &Service{
		remote:   remote,
		inputs:   inputs,
		cache:    cache,
		gate:     control.NewActionGate(cache),
		poller:   poller,
		dispatch: dispatch,
		events:   events,
		logger:   logger,
	}

	if events != nil {
		poller.OnSnapshot(s.publishSnapshot)
		dispatch.OnCommand(s.publishCommand)
	}
	return s
}

// Start pings the remote once and starts both loops.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return control.ErrAlreadyRunning
	}

	go s.initialPing(context.WithoutCancel(ctx))

	if err := s.poller.Start(ctx); err != nil {
		return fmt.Errorf("starting state poller: %w", err)
	}
	if err := s.dispatch.Start(ctx); err != nil {
		s.poller.Stop()
		return fmt.Errorf("starting dispatch loop: %w", err)
	}
	s.running = true
	s.logger.Infof("Teleop session started")
	return nil
}

// Stop halts both loops together. Calls still in flight finish in the
// background and their results are dropped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.dispatch.Stop()
	s.poller.Stop()
	s.inputs.ReleaseAll()
	s.running = false
	s.logger.Infof("Teleop session stopped")
}

func (s *Service) initialPing(ctx context.Context) {
	body, err := s.remote.Ping(ctx)
	if err != nil {
		s.logger.Warnf("Remote ping failed, loops will keep trying: %v", err)
		return
	}
	s.logger.Infof("Remote is reachable: %s", body)
}

// Perform issues a gated action. It fails with ErrActionNotPermitted when the
// cached state forbids it; a successful call triggers a state refresh.
func (s *Service) Perform(ctx context.Context, action control.Action) error {
	var call func(context.Context) error
	switch action {
	case control.ActionArm:
		call = s.remote.Arm
	case control.ActionTakeoff:
		call = s.remote.Takeoff
	case control.ActionLand:
		call = s.remote.Land
	case control.ActionDisarm:
		call = s.remote.Disarm
	default:
		return fmt.Errorf("%w: %q", control.ErrUnknownAction, action)
	}

	if !s.gate.Allows(action) {
		return fmt.Errorf("%w: %s", ErrActionNotPermitted, action)
	}

	if err := call(ctx); err != nil {
		s.logger.Warnf("Action %s failed: %v", action, err)
		return fmt.Errorf("%s: %w", action, err)
	}

	s.logger.Infof("Action %s accepted by remote", action)
	s.publishAction(action)
	s.poller.Refresh()
	return nil
}

// Ping proxies a liveness check to the remote.
func (s *Service) Ping(ctx context.Context) (json.RawMessage, error) {
	return s.remote.Ping(ctx)
}

// Snapshot returns the cached vehicle state, or nil before the first poll.
func (s *Service) Snapshot() *control.Snapshot {
	return s.cache.Load()
}

// Permissions returns the gate's current answer.
func (s *Service) Permissions() control.Permissions {
	return s.gate.Permissions()
}

// Inputs returns the stick pair fed by the input transports.
func (s *Service) Inputs() *control.Inputs {
	return s.inputs
}

// DispatchStats returns the dispatch loop counters.
func (s *Service) DispatchStats() control.DispatchStats {
	return s.dispatch.Stats()
}

// PollerStats returns the poller counters.
func (s *Service) PollerStats() control.PollerStats {
	return s.poller.Stats()
}

// InFlight reports whether a move submission is outstanding.
func (s *Service) InFlight() bool {
	return s.dispatch.InFlight()
}

// Mapper returns the active command mapper.
func (s *Service) Mapper() *control.Mapper {
	return s.dispatch.Mapper()
}

// ApplyProfile builds a mapper from p and swaps it in for subsequent ticks.
func (s *Service) ApplyProfile(p *config.Profile) error {
	mapper, err := control.NewMapperFromProfile(p)
	if err != nil {
		return err
	}
	s.dispatch.SetMapper(mapper)
	s.inputs.Left.SetInvertY(p.InvertY.Left)
	s.inputs.Right.SetInvertY(p.InvertY.Right)
	s.logger.Infof("Control profile applied (mode %s, deadband %v)", p.Mode, p.Deadband)
	return nil
}
