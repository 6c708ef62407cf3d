// Package remote is the HTTP boundary to the drone control API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	customlog "github.com/open-teleop/dronectl/pkg/log"
)

// API paths relative to the base URL.
const (
	PathPing    = "/ping"
	PathState   = "/api/control/state"
	PathArm     = "/api/control/arm"
	PathDisarm  = "/api/control/disarm"
	PathTakeoff = "/api/control/takeoff"
	PathLand    = "/api/control/land"
	PathMove    = "/api/control/move"
)

// maxErrorBody bounds how much of a failed response is kept in a StatusError.
const maxErrorBody = 512

// StatusError reports a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client talks to the remote control endpoint. Commands are fire-and-forget:
// only the status code is inspected.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  customlog.Logger
}

// NewClient creates a client for baseURL. A zero timeout means no per-call limit
// beyond the caller's context.
func NewClient(baseURL string, timeout time.Duration, logger customlog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
		logger:  logger,
	}
}

// BaseURL returns the endpoint this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping returns the opaque liveness payload.
func (c *Client) Ping(ctx context.Context) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, PathPing, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("GET %s: response is not JSON", PathPing)
	}
	return json.RawMessage(body), nil
}

// GetState fetches the current vehicle snapshot.
func (c *Client) GetState(ctx context.Context) (*VehicleState, error) {
	body, err := c.do(ctx, http.MethodGet, PathState, nil)
	if err != nil {
		return nil, err
	}
	return DecodeVehicleState(body)
}

// Arm requests motor arming.
func (c *Client) Arm(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, PathArm, nil)
	return err
}

// Disarm requests motor disarming.
func (c *Client) Disarm(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, PathDisarm, nil)
	return err
}

// Takeoff requests a takeoff.
func (c *Client) Takeoff(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, PathTakeoff, nil)
	return err
}

// Land requests a landing.
func (c *Client) Land(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, PathLand, nil)
	return err
}

// Move submits one motion command.
func (c *Client) Move(ctx context.Context, dx, dy, dz, yaw float64) error {
	payload, err := json.Marshal(MoveCommand{DX: dx, DY: dy, DZ: dz, Yaw: yaw})
	if err != nil {
		return fmt.Errorf("failed to marshal move command: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, PathMove, payload)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	c.logger.Debugf("%s %s -> %d (%d bytes)", method, path, resp.StatusCode, len(data))
	return data, nil
}
