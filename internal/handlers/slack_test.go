package handlers

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"taskdeck/internal/config"
	"taskdeck/internal/services"
)

func newSlackApp(resolver services.IdentityResolver, store services.Store) (*fiber.App, *memStore) {
	cfg := handlerTestConfig()
	cfg.SlackOwnerUserID = "U0OWNER"
	ws := config.DefaultWorkspace()
	parser := services.NewMessageParser(func() *config.Workspace { return ws })
	webhooks := services.NewWebhookService(store, resolver, cfg, nil)
	slack := services.NewSlackService("") // no token: replies disabled
	handler := NewSlackHandler(cfg, parser, webhooks, slack, nil)

	app := fiber.New()
	app.Post("/api/webhooks/slack", handler.Events)
	ms, _ := store.(*memStore)
	return app, ms
}

func TestSlackWebhook_URLVerification(t *testing.T) {
	app, _ := newSlackApp(&memResolver{ownerUID: "owner-uid"}, newMemStore())

	status, body := postJSON(app, "/api/webhooks/slack",
		`{"type":"url_verification","challenge":"abc123"}`, nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if body["challenge"] != "abc123" {
		t.Errorf("Challenge not echoed: %v", body)
	}
}

func TestSlackWebhook_MessageCreatesTask(t *testing.T) {
	store := newMemStore()
	app, ms := newSlackApp(&memResolver{ownerUID: "owner-uid"}, store)

	status, _ := postJSON(app, "/api/webhooks/slack",
		`{"type":"event_callback","event_id":"Ev001","event":{"type":"message","user":"U0OWNER","text":"Call accountant #personal finance #today","channel":"C01"}}`, nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}

	// Task creation happens after the ACK
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && ms.ownerTaskCount("owner-uid") == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if ms.ownerTaskCount("owner-uid") != 1 {
		t.Fatalf("Expected 1 task, got %d", ms.ownerTaskCount("owner-uid"))
	}

	ms.mu.Lock()
	task := ms.tasks["owner-uid"][0]
	ms.mu.Unlock()
	if task.Title != "Call accountant" {
		t.Errorf("Title = %q", task.Title)
	}
	if task.ProjectID != "personal-finance" || string(task.Bucket) != "today" {
		t.Errorf("Parsed draft off: project=%s bucket=%s", task.ProjectID, task.Bucket)
	}
}

func TestSlackWebhook_DedupsRedeliveredEvents(t *testing.T) {
	store := newMemStore()
	app, ms := newSlackApp(&memResolver{ownerUID: "owner-uid"}, store)

	payload := `{"type":"event_callback","event_id":"Ev002","event":{"type":"message","user":"U0OWNER","text":"Buy milk","channel":"C01"}}`
	for i := 0; i < 3; i++ {
		if status, _ := postJSON(app, "/api/webhooks/slack", payload, nil); status != fiber.StatusOK {
			t.Fatalf("Delivery %d: expected 200, got %d", i, status)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && ms.ownerTaskCount("owner-uid") == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	if n := ms.ownerTaskCount("owner-uid"); n != 1 {
		t.Errorf("Redelivered event created %d tasks, want 1", n)
	}
}

func TestSlackWebhook_IgnoresBotAndSubtypeMessages(t *testing.T) {
	store := newMemStore()
	app, ms := newSlackApp(&memResolver{ownerUID: "owner-uid"}, store)

	cases := []string{
		`{"type":"event_callback","event_id":"Ev010","event":{"type":"message","bot_id":"B01","text":"Echo","channel":"C01"}}`,
		`{"type":"event_callback","event_id":"Ev011","event":{"type":"message","subtype":"message_changed","user":"U0OWNER","text":"Edited","channel":"C01"}}`,
		`{"type":"event_callback","event_id":"Ev012","event":{"type":"reaction_added","user":"U0OWNER"}}`,
	}
	for _, payload := range cases {
		if status, _ := postJSON(app, "/api/webhooks/slack", payload, nil); status != fiber.StatusOK {
			t.Errorf("Expected 200 ACK, got %d", status)
		}
	}

	time.Sleep(50 * time.Millisecond)
	if n := ms.ownerTaskCount("owner-uid"); n != 0 {
		t.Errorf("Ignored events created %d tasks", n)
	}
}

func TestSlackWebhook_DelegateMessageGetsSentinelProject(t *testing.T) {
	store := newMemStore()
	app, ms := newSlackApp(&memResolver{ownerUID: "owner-uid"}, store)

	status, _ := postJSON(app, "/api/webhooks/slack",
		`{"type":"event_callback","event_id":"Ev020","event":{"type":"message","user":"U0SOMEONE","text":"Review the draft","channel":"C01"}}`, nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && ms.ownerTaskCount("owner-uid") == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if ms.ownerTaskCount("owner-uid") != 1 {
		t.Fatalf("Expected 1 task, got %d", ms.ownerTaskCount("owner-uid"))
	}

	ms.mu.Lock()
	task := ms.tasks["owner-uid"][0]
	ms.mu.Unlock()
	if task.ProjectID != "from-u0someone" {
		t.Errorf("Expected delegate sentinel project, got %s", task.ProjectID)
	}
}
