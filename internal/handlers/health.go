package handlers

import (
	"github.com/gofiber/fiber/v2"

	"taskdeck/internal/database"
)

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	db *database.MongoDB
}

func NewHealthHandler(db *database.MongoDB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.db.Ping(c.Context()); err != nil {
		status = "degraded"
		dbStatus = "disconnected"
	}

	return c.JSON(fiber.Map{
		"status":   status,
		"database": dbStatus,
		"service":  "taskdeck",
	})
}
