package zeromq

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pebbe/zmq4"

	"github.com/open-teleop/dronectl/domain/control"
	customlog "github.com/open-teleop/dronectl/pkg/log"
)

// Common errors
var (
	ErrServiceClosed  = errors.New("zeromq service is closed")
	ErrInvalidMessage = errors.New("invalid message format")
)

// Options selects the sockets the service opens.
type Options struct {
	// PublishAddress is bound by the PUB socket carrying telemetry.
	PublishAddress string
	// InputAddress, if set, is bound by the SUB socket receiving gamepad input.
	InputAddress string
}

// ZeroMQService owns the ZeroMQ context and the console's sockets.
type ZeroMQService struct {
	ctx      *zmq4.Context
	sender   *MessageSender
	listener *InputListener
	logger   customlog.Logger
	running  bool
	mu       sync.Mutex
	wg       sync.WaitGroup
}

// NewZeroMQService creates the sockets. inputs may be nil when no input
// address is configured.
func NewZeroMQService(opts Options, inputs *control.Inputs, logger customlog.Logger) (*ZeroMQService, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZMQ context: %w", err)
	}

	sender, err := newMessageSender(ctx, opts.PublishAddress, logger)
	if err != nil {
		ctx.Term()
		return nil, err
	}

	s := &ZeroMQService{ctx: ctx, sender: sender, logger: logger}

	if opts.InputAddress != "" {
		if inputs == nil {
			sender.Close()
			ctx.Term()
			return nil, fmt.Errorf("input address %s configured without input sources", opts.InputAddress)
		}
		listener, err := newInputListener(ctx, opts.InputAddress, inputs, logger, &s.wg)
		if err != nil {
			sender.Close()
			ctx.Term()
			return nil, err
		}
		s.listener = listener
	}

	return s, nil
}

// Sender returns the PUB side, usable as a processing sink.
func (s *ZeroMQService) Sender() *MessageSender {
	return s.sender
}

// Listener returns the gamepad input listener, or nil.
func (s *ZeroMQService) Listener() *InputListener {
	return s.listener
}

// Start begins the ZeroMQ service
func (s *ZeroMQService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.running = true
	s.logger.Infof("Starting ZeroMQ service")

	if s.listener != nil {
		s.listener.Start()
	}
	return nil
}

// Stop halts the ZeroMQ service
func (s *ZeroMQService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return
	}
	s.logger.Infof("Stopping ZeroMQ service")
	s.running = false

	if s.listener != nil {
		s.listener.Stop()
	}
	s.sender.Close()
	s.wg.Wait()

	if err := s.ctx.Term(); err != nil {
		s.logger.Warnf("Terminating ZMQ context: %v", err)
	}
	s.ctx = nil
	s.logger.Infof("ZeroMQ service stopped")
}
