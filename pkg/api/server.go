// Package api exposes the operator console over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/time/rate"

	"github.com/open-teleop/dronectl/domain/control"
	"github.com/open-teleop/dronectl/pkg/journal"
	customlog "github.com/open-teleop/dronectl/pkg/log"
	"github.com/open-teleop/dronectl/pkg/processing"
	"github.com/open-teleop/dronectl/services"
)

// Default action rate: two button presses per second, burst of two.
const (
	DefaultActionRate  = rate.Limit(2)
	DefaultActionBurst = 2
)

// Teleop is the session the handlers drive.
type Teleop interface {
	Snapshot() *control.Snapshot
	Permissions() control.Permissions
	Perform(ctx context.Context, action control.Action) error
	Ping(ctx context.Context) (json.RawMessage, error)
	DispatchStats() control.DispatchStats
	PollerStats() control.PollerStats
	InFlight() bool
	Inputs() *control.Inputs
}

// JournalReader serves the journal endpoint.
type JournalReader interface {
	Recent(topic string, limit int) ([]journal.Entry, error)
}

// EventMetrics exposes the event pool counters.
type EventMetrics interface {
	GetMetrics() processing.PoolMetrics
}

// Deps are the components behind the API. Only Teleop and Logger are required.
type Deps struct {
	Teleop   Teleop
	Profiles services.ProfileService
	Journal  JournalReader
	Events   EventMetrics
	Topics   *processing.TopicRegistry
	Logger   customlog.Logger

	// ActionRate limits POST /api/v1/actions/:action. Zero means DefaultActionRate.
	ActionRate  rate.Limit
	ActionBurst int
}

// NewApp builds the fiber application with every route registered.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "dronectl",
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "dronectl",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	RegisterControlRoutes(app, deps)
	if deps.Profiles != nil {
		RegisterConfigRoutes(app, deps.Profiles, deps.Logger)
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/input", websocket.New(func(conn *websocket.Conn) {
		InputWebSocketHandler(conn, deps.Teleop.Inputs(), deps.Logger)
	}))

	return app
}

// ErrorHandler renders every error as {"error": "..."} with the fiber status,
// or 500 for plain errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
