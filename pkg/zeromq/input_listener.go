package zeromq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pebbe/zmq4"
	"go.uber.org/atomic"

	"github.com/open-teleop/dronectl/domain/control"
	customlog "github.com/open-teleop/dronectl/pkg/log"
)

// InputTopicPrefix is the subscription prefix for gamepad bridge frames.
const InputTopicPrefix = "teleop.input"

const pollTimeout = 250 * time.Millisecond

// InputListener receives [topic, InputEvent JSON] frames from a gamepad
// bridge and applies them to the input sources.
type InputListener struct {
	socket   *zmq4.Socket
	poller   *zmq4.Poller
	endpoint string
	inputs   *control.Inputs
	logger   customlog.Logger
	running  *atomic.Bool
	applied  *atomic.Int64
	rejected *atomic.Int64
	wg       *sync.WaitGroup
}

func newInputListener(ctx *zmq4.Context, address string, inputs *control.Inputs, logger customlog.Logger, wg *sync.WaitGroup) (*InputListener, error) {
	socket, err := ctx.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}

	if err := socket.SetSubscribe(InputTopicPrefix); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}
	if err := socket.Bind(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	endpoint, err := socket.GetLastEndpoint()
	if err != nil {
		endpoint = address
	}

	poller := zmq4.NewPoller()
	poller.Add(socket, zmq4.POLLIN)

	logger.Infof("InputListener bound on %s", endpoint)

	return &InputListener{
		socket:   socket,
		poller:   poller,
		endpoint: endpoint,
		inputs:   inputs,
		logger:   logger,
		running:  atomic.NewBool(false),
		applied:  atomic.NewInt64(0),
		rejected: atomic.NewInt64(0),
		wg:       wg,
	}, nil
}

// Endpoint is the resolved bind address.
func (l *InputListener) Endpoint() string {
	return l.endpoint
}

// Applied counts events applied to the input sources.
func (l *InputListener) Applied() int64 {
	return l.applied.Load()
}

// Rejected counts frames that could not be applied.
func (l *InputListener) Rejected() int64 {
	return l.rejected.Load()
}

// Start begins the receive loop. The loop owns the socket and closes it on exit.
func (l *InputListener) Start() {
	if !l.running.CompareAndSwap(false, true) {
		return
	}

	l.wg.Add(1)
	go l.receiveLoop()
}

// Stop asks the receive loop to exit. The loop notices within one poll timeout.
func (l *InputListener) Stop() {
	if !l.running.CompareAndSwap(true, false) {
		// Never started; nobody else will close the socket.
		l.socket.Close()
	}
}

func (l *InputListener) receiveLoop() {
	defer l.wg.Done()
	defer l.socket.Close()
	// Sticks a vanished bridge was holding must not stay deflected.
	defer l.inputs.ReleaseAll()

	for l.running.Load() {
		sockets, err := l.poller.Poll(pollTimeout)
		if err != nil {
			if l.running.Load() {
				l.logger.Warnf("Error polling input socket: %v", err)
			}
			continue
		}
		if len(sockets) == 0 {
			continue
		}

		frames, err := l.socket.RecvMessageBytes(0)
		if err != nil {
			if l.running.Load() {
				l.logger.Warnf("Error receiving input: %v", err)
			}
			continue
		}

		if err := l.apply(frames); err != nil {
			l.rejected.Inc()
			l.logger.Warnf("Skipping input frame: %v", err)
			continue
		}
		l.applied.Inc()
	}
	l.logger.Infof("InputListener stopped")
}

func (l *InputListener) apply(frames [][]byte) error {
	if len(frames) != 2 {
		return fmt.Errorf("%w: expected 2 frames, got %d", ErrInvalidMessage, len(frames))
	}

	var ev control.InputEvent
	if err := json.Unmarshal(frames[1], &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return l.inputs.Apply(ev)
}
