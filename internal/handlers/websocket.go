package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"taskdeck/internal/services"
)

// StreamHandler serves the live snapshot stream. Each connection attaches to
// the caller's sync session and receives every full snapshot the session's
// subscriptions deliver, plus the current state immediately on connect.
type StreamHandler struct {
	sync    *services.SyncService
	metrics *services.Metrics
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(sync *services.SyncService, metrics *services.Metrics) *StreamHandler {
	return &StreamHandler{sync: sync, metrics: metrics}
}

// streamMessage is the wire shape: one message per collection snapshot
type streamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Handle runs one WebSocket connection until the client disconnects
// GET /ws
func (h *StreamHandler) Handle(c *websocket.Conn) {
	userID, _ := c.Locals("user_id").(string)
	email, _ := c.Locals("user_email").(string)
	if userID == "" {
		c.WriteJSON(streamMessage{Type: "error", Data: "authentication required"})
		c.Close()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	sess, err := h.sync.SessionFor(ctx, services.Identity{UID: userID, Email: email})
	cancel()
	if err != nil {
		log.Printf("❌ WebSocket session setup failed for %s: %v", userID, err)
		c.WriteJSON(streamMessage{Type: "error", Data: "failed to establish session"})
		c.Close()
		return
	}

	watchID := uuid.New().String()
	updates := sess.Watch(watchID)
	defer sess.Unwatch(watchID)

	if h.metrics != nil {
		h.metrics.WatcherConnections.Inc()
		defer h.metrics.WatcherConnections.Dec()
	}
	log.Printf("🔌 Snapshot stream connected: user=%s state=%s", userID, sess.State())

	// The client starts from the session's last-delivered state, then gets
	// every refire. Full snapshots each time, never diffs.
	if err := c.WriteJSON(streamMessage{Type: "projects", Data: sess.Projects()}); err != nil {
		return
	}
	if err := c.WriteJSON(streamMessage{Type: "tasks", Data: sess.Tasks()}); err != nil {
		return
	}

	done := make(chan struct{})

	// Read loop exists only to observe the disconnect
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				// Session torn down (sign-out or idle expiry)
				c.WriteJSON(streamMessage{Type: "session_closed", Data: nil})
				return
			}
			msg := streamMessage{Type: "tasks", Data: snap.Tasks}
			if snap.Kind == services.KindProjects {
				msg = streamMessage{Type: "projects", Data: snap.Projects}
			}
			if err := c.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			log.Printf("🔌 Snapshot stream disconnected: user=%s", userID)
			return
		}
	}
}
