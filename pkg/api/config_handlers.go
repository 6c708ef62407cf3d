package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/dronectl/pkg/log"
	"github.com/open-teleop/dronectl/services"
)

const mimeYAML = "application/x-yaml"

// ConfigHandler holds dependencies for configuration API endpoints.
type ConfigHandler struct {
	profileService services.ProfileService
	logger         customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(profileService services.ProfileService, logger customlog.Logger) *ConfigHandler {
	if profileService == nil {
		panic("ProfileService cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewConfigHandler")
	}
	return &ConfigHandler{
		profileService: profileService,
		logger:         logger,
	}
}

// RegisterConfigRoutes registers the configuration API endpoints with the Fiber app.
func RegisterConfigRoutes(app *fiber.App, profileService services.ProfileService, logger customlog.Logger) {
	h := NewConfigHandler(profileService, logger)

	apiGroup := app.Group("/api/v1/config")
	apiGroup.Get("/profile", h.handleGetProfile)
	apiGroup.Put("/profile", h.handleUpdateProfile)

	logger.Infof("Registered profile configuration API endpoints under /api/v1/config")
}

// handleGetProfile returns the control profile YAML as stored on disk.
func (h *ConfigHandler) handleGetProfile(c *fiber.Ctx) error {
	yamlData, err := h.profileService.GetCurrentProfileYAML()
	if err != nil {
		h.logger.Errorf("Failed to read control profile YAML: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to retrieve profile: %v", err))
	}

	c.Set(fiber.HeaderContentType, mimeYAML)
	return c.Send(yamlData)
}

// handleUpdateProfile validates, applies, and persists a new control profile.
func (h *ConfigHandler) handleUpdateProfile(c *fiber.Ctx) error {
	switch ct := c.Get(fiber.HeaderContentType); ct {
	case mimeYAML, "application/yaml", "text/yaml", "":
	default:
		h.logger.Warnf("Profile update sent with Content-Type %s, parsing as YAML anyway", ct)
	}

	body := c.Body()
	if len(body) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Request body cannot be empty.")
	}

	if err := h.profileService.UpdateProfile(body); err != nil {
		if errors.Is(err, services.ErrInvalidProfile) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		h.logger.Errorf("Failed to update control profile: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	profile := h.profileService.GetCurrentProfile()
	return c.JSON(fiber.Map{
		"message": "Control profile updated; new commands use it from the next tick.",
		"profile": profile,
	})
}
