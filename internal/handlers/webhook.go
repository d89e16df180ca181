package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"taskdeck/internal/config"
	"taskdeck/internal/models"
	"taskdeck/internal/services"
)

// WebhookHandler handles the direct add-task webhook. The endpoint is
// unauthenticated but gated on a shared secret, so automations (shortcuts,
// cron, email rules) can file tasks without a JWT.
type WebhookHandler struct {
	cfg      *config.Config
	webhooks *services.WebhookService
	sync     *services.SyncService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(cfg *config.Config, webhooks *services.WebhookService, sync *services.SyncService) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, webhooks: webhooks, sync: sync}
}

// addTaskRequest keeps title untyped so a non-string title can be rejected
// instead of silently coerced.
type addTaskRequest struct {
	APIKey  string          `json:"apiKey"`
	Title   json.RawMessage `json:"title"`
	Project string          `json:"project"`
	Bucket  string          `json:"bucket"`
}

// AddTask files a task into the owner's space
// POST /api/webhooks/add-task
func (h *WebhookHandler) AddTask(c *fiber.Ctx) error {
	var req addTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Secret comes from the X-API-Key header or the apiKey body field
	secret := c.Get("X-API-Key")
	if secret == "" {
		secret = req.APIKey
	}
	if h.cfg.WebhookAPIKey == "" || secret != h.cfg.WebhookAPIKey {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid API key",
		})
	}

	var title string
	if err := json.Unmarshal(req.Title, &title); err != nil || strings.TrimSpace(title) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing or invalid 'title'",
		})
	}

	ws := h.sync.Workspace()
	draft := services.TaskDraft{
		Title:     strings.TrimSpace(title),
		ProjectID: models.ProjectUnassigned,
		Bucket:    models.BucketInbox,
	}
	if req.Project != "" {
		if id, ok := ws.ProjectAlias[strings.ToLower(strings.TrimSpace(req.Project))]; ok {
			draft.ProjectID = id
		}
	}
	if req.Bucket != "" {
		if b, ok := ws.BucketAlias[strings.ToLower(strings.TrimSpace(req.Bucket))]; ok {
			draft.Bucket = models.Bucket(b)
		}
	}

	task, err := h.webhooks.CreateTask(c.Context(), draft, "webhook")
	if err != nil {
		if errors.Is(err, services.ErrNoOwner) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "No owner account has signed in yet",
			})
		}
		log.Printf("❌ Webhook task creation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create task",
		})
	}

	log.Printf("📥 Webhook task created: %s (project=%s bucket=%s)", task.ID, task.ProjectID, task.Bucket)
	return c.JSON(fiber.Map{
		"ok":   true,
		"task": task,
	})
}
