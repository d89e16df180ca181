package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"taskdeck/internal/services"
	"taskdeck/internal/views"
)

// ViewHandler serves the board and agenda projections. Both are computed on
// demand from the session's last-delivered snapshot; nothing here touches the
// store.
type ViewHandler struct {
	sync *services.SyncService
}

// NewViewHandler creates a new view handler
func NewViewHandler(sync *services.SyncService) *ViewHandler {
	return &ViewHandler{sync: sync}
}

// Board returns the kanban projection: today/soon/someday columns grouped by
// project in display order
// GET /api/board
func (h *ViewHandler) Board(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}

	filters := filtersFromQuery(c)
	selected := selectedProject(c, sess)
	columns := views.Board(sess.Tasks(), sess.Projects(), selected, filters, time.Now())

	return c.JSON(fiber.Map{
		"columns":  columns,
		"readOnly": !sess.CanWrite(),
	})
}

// Agenda returns the flat bucket-section projection, inbox included, starred
// tasks first within each section
// GET /api/agenda
func (h *ViewHandler) Agenda(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}

	filters := filtersFromQuery(c)
	selected := selectedProject(c, sess)

	ws := h.sync.Workspace()
	sections := views.Agenda(sess.Tasks(), selected, filters, ws.ProjectRank, time.Now())

	return c.JSON(fiber.Map{
		"sections": sections,
		"readOnly": !sess.CanWrite(),
	})
}
