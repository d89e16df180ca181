package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"taskdeck/internal/models"
	"taskdeck/internal/services"
	"taskdeck/internal/views"
)

// sessionFromCtx resolves the request's identity into its live sync session.
// On failure the error response has already been written; callers return the
// second value as-is when the session is nil.
func sessionFromCtx(c *fiber.Ctx, sync *services.SyncService) (*services.Session, error) {
	userID, _ := c.Locals("user_id").(string)
	email, _ := c.Locals("user_email").(string)
	if userID == "" {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}
	sess, err := sync.SessionFor(c.Context(), services.Identity{UID: userID, Email: email})
	if err != nil {
		log.Printf("❌ Failed to establish session for %s: %v", userID, err)
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to establish session",
		})
	}
	return sess, nil
}

// filtersFromQuery parses the starred/priorities query params
// (?starred=true&priorities=high,medium)
func filtersFromQuery(c *fiber.Ctx) views.Filters {
	f := views.Filters{
		Starred: c.Query("starred") == "true",
	}
	if raw := c.Query("priorities"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			priority := models.Priority(strings.TrimSpace(strings.ToLower(p)))
			if priority != models.PriorityNone && priority.IsValid() {
				f.Priorities = append(f.Priorities, priority)
			}
		}
	}
	return f
}

// selectedProject resolves the project filter for a view request: an explicit
// ?project= wins, otherwise the session's sticky selection applies.
func selectedProject(c *fiber.Ctx, sess *services.Session) string {
	if c.Query("project") != "" {
		return c.Query("project")
	}
	return sess.SelectedProject()
}
