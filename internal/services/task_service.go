package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/models"
)

// ErrEmptyTitle is returned when a task is created with a blank title
var ErrEmptyTitle = errors.New("task title cannot be empty")

// TaskService is the task mutation surface. Every operation takes the
// explicit session it acts for; calls on a viewer session or with no resolved
// target return without side effect, never an error. Writes go through the
// store only; the session cache updates when the subscription refires.
type TaskService struct {
	store   Store
	metrics *Metrics
}

// NewTaskService creates a new task service
func NewTaskService(store Store, metrics *Metrics) *TaskService {
	return &TaskService{store: store, metrics: metrics}
}

func (s *TaskService) refuse(sess *Session) bool {
	if sess == nil || !sess.CanWrite() {
		if s.metrics != nil {
			s.metrics.ViewerNoOps.Inc()
		}
		return true
	}
	return false
}

// AddTask creates a full task record with all fields defaulted and writes it
// through. The local cache does not reflect the task until the subscription
// refires.
func (s *TaskService) AddTask(ctx context.Context, sess *Session, title, projectID string, bucket models.Bucket) (*models.Task, error) {
	if s.refuse(sess) {
		return nil, nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if bucket == "" {
		bucket = models.BucketToday
	}
	if !bucket.IsValid() {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}

	task := models.Task{
		ID:        uuid.New().String(),
		Title:     title,
		ProjectID: projectID,
		Bucket:    bucket,
		Priority:  models.PriorityNone,
		Notes:     "",
		Tags:      []string{},
		CreatedAt: time.Now().UnixMilli(),
	}

	if err := s.store.UpsertTask(ctx, sess.TargetOwnerID, task); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.TaskMutations.WithLabelValues("add").Inc()
	}
	sess.Touch()
	return &task, nil
}

// UpdateTask merges a patch over the last-known full record and writes the
// complete merged record through, so local and remote agree after the round
// trip. Unknown ids are a no-op.
func (s *TaskService) UpdateTask(ctx context.Context, sess *Session, id string, patch models.TaskPatch) error {
	if s.refuse(sess) {
		return nil
	}
	existing, ok := sess.TaskByID(id)
	if !ok {
		return nil
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return ErrEmptyTitle
	}
	if patch.Bucket != nil && !patch.Bucket.IsValid() {
		return fmt.Errorf("unknown bucket %q", *patch.Bucket)
	}
	if patch.Priority != nil && !patch.Priority.IsValid() {
		return fmt.Errorf("unknown priority %q", *patch.Priority)
	}

	merged := patch.Apply(existing, time.Now().UnixMilli())
	if err := s.store.UpsertTask(ctx, sess.TargetOwnerID, merged); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.TaskMutations.WithLabelValues("update").Inc()
	}
	sess.Touch()
	return nil
}

// DeleteTask removes a task remotely; local state updates once the
// subscription refires. Idempotent for unknown ids.
func (s *TaskService) DeleteTask(ctx context.Context, sess *Session, id string) error {
	if s.refuse(sess) {
		return nil
	}
	if err := s.store.RemoveTask(ctx, sess.TargetOwnerID, id); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.TaskMutations.WithLabelValues("delete").Inc()
	}
	sess.Touch()
	return nil
}

// MoveTask relocates a task between buckets (drag-and-drop)
func (s *TaskService) MoveTask(ctx context.Context, sess *Session, id string, bucket models.Bucket) error {
	return s.UpdateTask(ctx, sess, id, models.TaskPatch{Bucket: &bucket})
}

// SetStarred toggles the star. Starring forces priority=high and stamps
// sortWeight; unstarring leaves both untouched (sticky priority).
func (s *TaskService) SetStarred(ctx context.Context, sess *Session, id string, starred bool) error {
	return s.UpdateTask(ctx, sess, id, models.TaskPatch{Starred: &starred})
}

// CompleteTask marks a task done, removing it from every active view
func (s *TaskService) CompleteTask(ctx context.Context, sess *Session, id string) error {
	completed := true
	return s.UpdateTask(ctx, sess, id, models.TaskPatch{Completed: &completed})
}
