package api

import (
	"encoding/json"
	"errors"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/open-teleop/dronectl/domain/control"
	customlog "github.com/open-teleop/dronectl/pkg/log"
)

// inputSession tracks which sticks one connection has moved, so only those
// are released when it goes away.
type inputSession struct {
	id      string
	inputs  *control.Inputs
	touched map[string]bool
	logger  customlog.Logger
}

func newInputSession(inputs *control.Inputs, logger customlog.Logger) *inputSession {
	id := uuid.NewString()
	return &inputSession{
		id:      id,
		inputs:  inputs,
		touched: make(map[string]bool, 2),
		logger:  logger.WithField("session", id),
	}
}

func (s *inputSession) handleFrame(msg []byte) error {
	var ev control.InputEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		return err
	}
	if err := s.inputs.Apply(ev); err != nil {
		return err
	}
	s.touched[ev.Source] = true
	return nil
}

func (s *inputSession) release() {
	for name := range s.touched {
		if src, err := s.inputs.Source(name); err == nil {
			src.Release()
		}
	}
}

// InputWebSocketHandler applies InputEvent JSON text frames to the sticks
// until the connection closes. Malformed frames are logged and skipped.
func InputWebSocketHandler(conn *websocket.Conn, inputs *control.Inputs, logger customlog.Logger) {
	session := newInputSession(inputs, logger)
	session.logger.Infof("Input WebSocket connected: %s", conn.RemoteAddr())
	defer func() {
		session.release()
		session.logger.Infof("Input WebSocket disconnected: %s", conn.RemoteAddr())
	}()

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
				!errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
				session.logger.Warnf("Input WS read error: %v", err)
			}
			return
		}

		if mt != websocket.TextMessage {
			session.logger.Debugf("Ignoring non-text input WS message type: %d", mt)
			continue
		}
		if err := session.handleFrame(msg); err != nil {
			session.logger.Warnf("Skipping input frame %q: %v", msg, err)
		}
	}
}
