package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports liveness and which collaborators are configured
type HealthHandler struct {
	services map[string]bool
}

func NewHealthHandler(services map[string]bool) *HealthHandler {
	return &HealthHandler{services: services}
}

// Root handles GET /
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"timestamp": time.Now().Unix(),
	})
}

// Health handles GET /health
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"services": h.services,
	})
}
