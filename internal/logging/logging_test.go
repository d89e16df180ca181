package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestWithSession_AttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	WithSession("sess-1", "uid-1", "owner-1").Info("subscription pair started")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if record["session_id"] != "sess-1" {
		t.Errorf("session_id = %v, want sess-1", record["session_id"])
	}
	if record["uid"] != "uid-1" {
		t.Errorf("uid = %v, want uid-1", record["uid"])
	}
	if record["target_owner"] != "owner-1" {
		t.Errorf("target_owner = %v, want owner-1", record["target_owner"])
	}
}
