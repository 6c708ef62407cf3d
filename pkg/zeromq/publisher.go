package zeromq

import (
	"fmt"
	"sync"

	"github.com/pebbe/zmq4"

	customlog "github.com/open-teleop/dronectl/pkg/log"
	"github.com/open-teleop/dronectl/pkg/processing"
)

// MessageSender publishes console events on a PUB socket as two-frame
// messages: [topic, payload].
type MessageSender struct {
	socket   *zmq4.Socket
	endpoint string
	logger   customlog.Logger
	running  bool
	mu       sync.Mutex
}

func newMessageSender(ctx *zmq4.Context, address string, logger customlog.Logger) (*MessageSender, error) {
	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
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
	logger.Infof("MessageSender publishing on %s", endpoint)

	return &MessageSender{
		socket:   socket,
		endpoint: endpoint,
		logger:   logger,
		running:  true,
	}, nil
}

// Endpoint is the resolved bind address (wildcard ports filled in).
func (s *MessageSender) Endpoint() string {
	return s.endpoint
}

// PublishMessage sends a message with the given topic
func (s *MessageSender) PublishMessage(topic string, message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServiceClosed
	}

	if _, err := s.socket.Send(topic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic: %w", err)
	}
	if _, err := s.socket.SendBytes(message, 0); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// HandleMessage publishes msg, making the sender a processing sink.
func (s *MessageSender) HandleMessage(msg *processing.Message) error {
	return s.PublishMessage(msg.Topic, msg.Data)
}

// Close cleans up resources
func (s *MessageSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	err := s.socket.Close()
	s.socket = nil
	return err
}
