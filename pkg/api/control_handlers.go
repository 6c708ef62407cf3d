package api

import (
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/open-teleop/dronectl/domain/control"
	"github.com/open-teleop/dronectl/domain/teleop"
	customlog "github.com/open-teleop/dronectl/pkg/log"
)

// ControlHandler serves vehicle state, actions, and loop statistics.
type ControlHandler struct {
	deps    Deps
	limiter *rate.Limiter
	logger  customlog.Logger
}

// RegisterControlRoutes registers the /api/v1 control endpoints.
func RegisterControlRoutes(app *fiber.App, deps Deps) {
	r, burst := deps.ActionRate, deps.ActionBurst
	if r == 0 {
		r = DefaultActionRate
	}
	if burst <= 0 {
		burst = DefaultActionBurst
	}
	h := &ControlHandler{deps: deps, limiter: rate.NewLimiter(r, burst), logger: deps.Logger}

	v1 := app.Group("/api/v1")
	v1.Get("/state", h.handleState)
	v1.Get("/actions", h.handlePermissions)
	v1.Post("/actions/:action", h.handlePerform)
	v1.Get("/ping", h.handlePing)
	v1.Get("/dispatch/stats", h.handleStats)
	v1.Get("/journal", h.handleJournal)

	deps.Logger.Infof("Registered control API endpoints under /api/v1")
}

func (h *ControlHandler) handleState(c *fiber.Ctx) error {
	resp := StateResponse{Permissions: h.deps.Teleop.Permissions()}
	if snap := h.deps.Teleop.Snapshot(); snap != nil {
		state := snap.State
		fetchedAt := snap.FetchedAt
		resp.State = &state
		resp.Seq = snap.Seq
		resp.FetchedAt = &fetchedAt
		resp.Age = humanize.Time(fetchedAt)
		// Permissions must describe the snapshot returned alongside them.
		resp.Permissions = control.Evaluate(&state)
	}
	return c.JSON(resp)
}

func (h *ControlHandler) handlePermissions(c *fiber.Ctx) error {
	return c.JSON(h.deps.Teleop.Permissions())
}

func (h *ControlHandler) handlePerform(c *fiber.Ctx) error {
	action, err := control.ParseAction(c.Params("action"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	if !h.limiter.Allow() {
		return fiber.NewError(fiber.StatusTooManyRequests, "too many actions, slow down")
	}

	if err := h.deps.Teleop.Perform(c.UserContext(), action); err != nil {
		if errors.Is(err, teleop.ErrActionNotPermitted) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		h.logger.Warnf("Action %s failed: %v", action, err)
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return c.Status(fiber.StatusAccepted).JSON(ActionResponse{Action: action, Status: "accepted"})
}

func (h *ControlHandler) handlePing(c *fiber.Ctx) error {
	body, err := h.deps.Teleop.Ping(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	if len(body) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

func (h *ControlHandler) handleStats(c *fiber.Ctx) error {
	resp := StatsResponse{
		Dispatch: h.deps.Teleop.DispatchStats(),
		Poller:   h.deps.Teleop.PollerStats(),
		InFlight: h.deps.Teleop.InFlight(),
	}
	if h.deps.Events != nil {
		m := h.deps.Events.GetMetrics()
		resp.Events = &m
	}
	if h.deps.Topics != nil {
		resp.Topics = h.deps.Topics.GetTopicStats()
	}
	return c.JSON(resp)
}

func (h *ControlHandler) handleJournal(c *fiber.Ctx) error {
	if h.deps.Journal == nil {
		return fiber.NewError(fiber.StatusNotFound, "journal is disabled")
	}

	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}

	entries, err := h.deps.Journal.Recent(c.Query("topic"), limit)
	if err != nil {
		h.logger.Errorf("Reading journal: %v", err)
		return err
	}

	views := make([]JournalEntry, 0, len(entries))
	for _, e := range entries {
		views = append(views, newJournalEntry(e))
	}
	return c.JSON(fiber.Map{"entries": views})
}
