package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"taskdeck/internal/models"
)

// ErrEmptyName is returned when a project is created or renamed with a blank name
var ErrEmptyName = errors.New("project name cannot be empty")

// ProjectService is the project mutation surface. Same contract as
// TaskService: viewer sessions are silent no-ops, writes go through the
// store, the cache updates on snapshot refire.
type ProjectService struct {
	store   Store
	metrics *Metrics
}

// NewProjectService creates a new project service
func NewProjectService(store Store, metrics *Metrics) *ProjectService {
	return &ProjectService{store: store, metrics: metrics}
}

func (s *ProjectService) refuse(sess *Session) bool {
	if sess == nil || !sess.CanWrite() {
		if s.metrics != nil {
			s.metrics.ViewerNoOps.Inc()
		}
		return true
	}
	return false
}

// AddProject creates a project with a fresh id
func (s *ProjectService) AddProject(ctx context.Context, sess *Session, name string) (*models.Project, error) {
	if s.refuse(sess) {
		return nil, nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	project := models.Project{ID: uuid.New().String(), Name: name}
	if err := s.store.UpsertProject(ctx, sess.TargetOwnerID, project); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ProjectMutations.WithLabelValues("add").Inc()
	}
	sess.Touch()
	return &project, nil
}

// RenameProject updates a project's display name. Unknown ids are a no-op.
func (s *ProjectService) RenameProject(ctx context.Context, sess *Session, id, name string) error {
	if s.refuse(sess) {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	existing, ok := sess.ProjectByID(id)
	if !ok {
		return nil
	}
	existing.Name = name
	if err := s.store.UpsertProject(ctx, sess.TargetOwnerID, existing); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ProjectMutations.WithLabelValues("rename").Inc()
	}
	sess.Touch()
	return nil
}

// DeleteProject removes the project and cascades the delete to every task
// referencing it. If the deleted project was the session's selected filter,
// the selection is cleared. The cascade is best-effort: the first failing
// child delete is returned, with no rollback of the ones already applied.
func (s *ProjectService) DeleteProject(ctx context.Context, sess *Session, id string) error {
	if s.refuse(sess) {
		return nil
	}

	if err := s.store.RemoveProject(ctx, sess.TargetOwnerID, id); err != nil {
		return err
	}
	for _, t := range sess.Tasks() {
		if t.ProjectID != id {
			continue
		}
		if err := s.store.RemoveTask(ctx, sess.TargetOwnerID, t.ID); err != nil {
			return err
		}
	}
	if sess.SelectedProject() == id {
		sess.SelectProject("")
	}
	if s.metrics != nil {
		s.metrics.ProjectMutations.WithLabelValues("delete").Inc()
	}
	sess.Touch()
	return nil
}
