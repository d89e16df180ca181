package handlers

import (
	"github.com/gofiber/fiber/v2"

	"taskdeck/internal/services"
)

// SessionHandler exposes the caller's sync session state
type SessionHandler struct {
	sync *services.SyncService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sync *services.SyncService) *SessionHandler {
	return &SessionHandler{sync: sync}
}

// Get reports the session's resolved state
// GET /api/session
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}
	return c.JSON(fiber.Map{
		"sessionId": sess.ID,
		"state":     sess.State(),
		"readOnly":  !sess.CanWrite(),
		"selected":  sess.SelectedProject(),
	})
}

// Delete signs the caller out, cancelling the session's subscriptions before
// the response is written.
// DELETE /api/session
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}
	h.sync.SignOut(sess.ID)
	return c.JSON(fiber.Map{"ok": true})
}
