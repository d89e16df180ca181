package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"taskdeck/internal/services"
)

// ProjectHandler handles project CRUD and the session's project selection
type ProjectHandler struct {
	sync     *services.SyncService
	projects *services.ProjectService
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(sync *services.SyncService, projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{sync: sync, projects: projects}
}

// List returns the session's current project snapshot in display order
// GET /api/projects
func (h *ProjectHandler) List(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}
	return c.JSON(fiber.Map{
		"projects": sess.Projects(),
	})
}

// Create adds a new project
// POST /api/projects
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	project, err := h.projects.AddProject(c.Context(), sess, req.Name)
	if err != nil {
		if errors.Is(err, services.ErrEmptyName) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Project name is required",
			})
		}
		log.Printf("❌ Failed to create project: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create project",
		})
	}
	if project == nil {
		return c.JSON(fiber.Map{"ok": true})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":      true,
		"project": project,
	})
}

// Rename updates a project's display name
// PATCH /api/projects/:id
func (h *ProjectHandler) Rename(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}

	id := c.Params("id")
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.projects.RenameProject(c.Context(), sess, id, req.Name); err != nil {
		if errors.Is(err, services.ErrEmptyName) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Project name is required",
			})
		}
		log.Printf("❌ Failed to rename project %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to rename project",
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Delete removes a project and all of its tasks
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}

	id := c.Params("id")
	if err := h.projects.DeleteProject(c.Context(), sess, id); err != nil {
		log.Printf("❌ Failed to delete project %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete project",
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// SetSelection sets or clears the session's sticky project filter. An empty
// projectId clears the selection.
// PUT /api/selection
func (h *ProjectHandler) SetSelection(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}

	var req struct {
		ProjectID string `json:"projectId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	sess.SelectProject(req.ProjectID)
	return c.JSON(fiber.Map{
		"ok":       true,
		"selected": sess.SelectedProject(),
	})
}
