package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskdeck/internal/config"
	"taskdeck/internal/models"
)

// ErrNoOwner is returned when a webhook task arrives before the owner has
// ever signed in (no owner pointer to write under).
var ErrNoOwner = errors.New("no owner identity on record")

// WebhookService creates tasks on behalf of the owner from inbound webhook
// calls. Unlike session mutations, webhook writes always target the owner's
// collections, resolved through the owner pointer on every call.
type WebhookService struct {
	store    Store
	resolver IdentityResolver
	cfg      *config.Config
	metrics  *Metrics
}

// NewWebhookService creates a new webhook service
func NewWebhookService(store Store, resolver IdentityResolver, cfg *config.Config, metrics *Metrics) *WebhookService {
	return &WebhookService{store: store, resolver: resolver, cfg: cfg, metrics: metrics}
}

// webhookTaskID builds ids in the chat-ingestion shape: slack-<unixms>-<rand>
func webhookTaskID() string {
	buf := make([]byte, 3)
	rand.Read(buf)
	return fmt.Sprintf("slack-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf)[:5])
}

// CreateTask writes a fully defaulted task into the owner's collection and
// returns the created record.
func (s *WebhookService) CreateTask(ctx context.Context, draft TaskDraft, source string) (*models.Task, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, ErrEmptyTitle
	}

	ownerUID, err := s.resolver.GetOwnerUID(ctx)
	if err != nil {
		return nil, err
	}
	if ownerUID == "" {
		return nil, ErrNoOwner
	}

	bucket := draft.Bucket
	if bucket == "" {
		bucket = models.BucketInbox
	}
	if !bucket.IsValid() {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}

	task := models.Task{
		ID:        webhookTaskID(),
		Title:     strings.TrimSpace(draft.Title),
		ProjectID: draft.ProjectID,
		Bucket:    bucket,
		Priority:  models.PriorityNone,
		Notes:     "",
		Tags:      []string{},
		CreatedAt: time.Now().UnixMilli(),
	}

	if err := s.store.UpsertTask(ctx, ownerUID, task); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.WebhookTasks.WithLabelValues(source).Inc()
	}
	return &task, nil
}
