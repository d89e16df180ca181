package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/patrickmn/go-cache"

	"taskdeck/internal/config"
	"taskdeck/internal/services"
)

// SlackHandler handles the Slack Events API endpoint. Slack redelivers any
// event not ACKed within 3 seconds, so the handler ACKs immediately, dedups
// on event_id, and posts the reply from a goroutine.
type SlackHandler struct {
	cfg      *config.Config
	parser   *services.MessageParser
	webhooks *services.WebhookService
	slack    *services.SlackService
	metrics  *services.Metrics
	seen     *cache.Cache
}

// NewSlackHandler creates a new Slack events handler
func NewSlackHandler(cfg *config.Config, parser *services.MessageParser, webhooks *services.WebhookService, slack *services.SlackService, metrics *services.Metrics) *SlackHandler {
	return &SlackHandler{
		cfg:      cfg,
		parser:   parser,
		webhooks: webhooks,
		slack:    slack,
		metrics:  metrics,
		seen:     cache.New(10*time.Minute, 30*time.Minute),
	}
}

type slackEvent struct {
	Type    string `json:"type"`
	User    string `json:"user"`
	Text    string `json:"text"`
	Channel string `json:"channel"`
	BotID   string `json:"bot_id"`
	Subtype string `json:"subtype"`
}

type slackEnvelope struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge"`
	EventID   string     `json:"event_id"`
	Event     slackEvent `json:"event"`
}

// Events receives Slack event callbacks
// POST /api/webhooks/slack
func (h *SlackHandler) Events(c *fiber.Ctx) error {
	var env slackEnvelope
	if err := c.BodyParser(&env); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Slack sends this once when the endpoint URL is registered
	if env.Type == "url_verification" {
		return c.JSON(fiber.Map{"challenge": env.Challenge})
	}

	if env.Type != "event_callback" || env.Event.Type != "message" {
		return c.JSON(fiber.Map{"ok": true})
	}

	// Ignore our own replies and message edits/joins
	if env.Event.BotID != "" || env.Event.Subtype != "" {
		return c.JSON(fiber.Map{"ok": true})
	}

	// Redeliveries reuse the event_id
	if env.EventID != "" {
		if _, dup := h.seen.Get(env.EventID); dup {
			return c.JSON(fiber.Map{"ok": true})
		}
		h.seen.Set(env.EventID, true, cache.DefaultExpiration)
	}

	event := env.Event
	go h.processMessage(event)

	return c.JSON(fiber.Map{"ok": true})
}

// processMessage runs after the ACK: parse, create, reply.
func (h *SlackHandler) processMessage(event slackEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	senderIsOwner := h.cfg.SlackOwnerUserID != "" && event.User == h.cfg.SlackOwnerUserID

	draft, err := h.parser.Parse(event.Text, event.User, senderIsOwner)
	if err != nil {
		if errors.Is(err, services.ErrNoTask) {
			if h.metrics != nil {
				h.metrics.ParseFailures.Inc()
			}
			h.reply(ctx, event.Channel, "🤔 I couldn't find a task in that message. Try: `Buy milk #today`")
		}
		return
	}

	task, err := h.webhooks.CreateTask(ctx, draft, "slack")
	if err != nil {
		log.Printf("❌ Slack task creation failed: %v", err)
		h.reply(ctx, event.Channel, "⚠️ Something went wrong saving that task, please try again.")
		return
	}

	label := h.parser.ProjectLabel(task.ProjectID)
	h.reply(ctx, event.Channel, fmt.Sprintf("✅ Added to %s: *%s* (#%s)", task.Bucket, task.Title, label))
}

func (h *SlackHandler) reply(ctx context.Context, channel, text string) {
	if !h.slack.Enabled() || channel == "" {
		return
	}
	if err := h.slack.PostMessage(ctx, channel, text); err != nil {
		log.Printf("⚠️ Slack reply failed: %v", err)
	}
}
