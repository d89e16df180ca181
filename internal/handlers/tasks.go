package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"taskdeck/internal/models"
	"taskdeck/internal/services"
)

// TaskHandler handles task CRUD operations
type TaskHandler struct {
	sync  *services.SyncService
	tasks *services.TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(sync *services.SyncService, tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{sync: sync, tasks: tasks}
}

// CreateTaskRequest is the body for POST /api/tasks
type CreateTaskRequest struct {
	Title     string        `json:"title"`
	ProjectID string        `json:"projectId"`
	Bucket    models.Bucket `json:"bucket"`
}

// List returns the session's current task snapshot
// GET /api/tasks
func (h *TaskHandler) List(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}
	return c.JSON(fiber.Map{
		"tasks": sess.Tasks(),
	})
}

// Create adds a new task
// POST /api/tasks
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	task, err := h.tasks.AddTask(c.Context(), sess, req.Title, req.ProjectID, req.Bucket)
	if err != nil {
		if errors.Is(err, services.ErrEmptyTitle) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Task title is required",
			})
		}
		log.Printf("❌ Failed to create task: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create task",
		})
	}
	if task == nil {
		// Viewer sessions are read-only; writes are silently dropped
		return c.JSON(fiber.Map{"ok": true})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":   true,
		"task": task,
	})
}

// Update merges a partial patch into a task
// PATCH /api/tasks/:id
func (h *TaskHandler) Update(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}

	id := c.Params("id")
	var patch models.TaskPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.tasks.UpdateTask(c.Context(), sess, id, patch); err != nil {
		if errors.Is(err, services.ErrEmptyTitle) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Task title is required",
			})
		}
		log.Printf("❌ Failed to update task %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update task",
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Delete removes a task
// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}

	id := c.Params("id")
	if err := h.tasks.DeleteTask(c.Context(), sess, id); err != nil {
		log.Printf("❌ Failed to delete task %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete task",
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Move relocates a task between buckets
// POST /api/tasks/:id/move
func (h *TaskHandler) Move(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}

	var req struct {
		Bucket models.Bucket `json:"bucket"`
	}
	if err := c.BodyParser(&req); err != nil || !req.Bucket.IsValid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Valid bucket is required",
		})
	}

	id := c.Params("id")
	if err := h.tasks.MoveTask(c.Context(), sess, id, req.Bucket); err != nil {
		log.Printf("❌ Failed to move task %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to move task",
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Star sets or clears a task's star
// POST /api/tasks/:id/star
func (h *TaskHandler) Star(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}

	var req struct {
		Starred bool `json:"starred"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	id := c.Params("id")
	if err := h.tasks.SetStarred(c.Context(), sess, id, req.Starred); err != nil {
		log.Printf("❌ Failed to star task %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to star task",
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Complete marks a task done
// POST /api/tasks/:id/complete
func (h *TaskHandler) Complete(c *fiber.Ctx) error {
	sess, err := sessionFromCtx(c, h.sync)
	if sess == nil {
		return err
	}

	id := c.Params("id")
	if err := h.tasks.CompleteTask(c.Context(), sess, id); err != nil {
		log.Printf("❌ Failed to complete task %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to complete task",
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}
