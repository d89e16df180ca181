package handlers

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"

	"taskdeck/internal/config"
	"taskdeck/internal/models"
	"taskdeck/internal/services"
)

// memStore is a minimal in-memory services.Store for handler tests
type memStore struct {
	mu       sync.Mutex
	tasks    map[string][]models.Task
	projects map[string][]models.Project
	bus      *services.SnapshotBus
}

func newMemStore() *memStore {
	return &memStore{
		tasks:    make(map[string][]models.Task),
		projects: make(map[string][]models.Project),
		bus:      services.NewSnapshotBus(),
	}
}

func (m *memStore) snapshot(ownerID string, kind services.CollectionKind) services.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := services.Snapshot{OwnerID: ownerID, Kind: kind}
	switch kind {
	case services.KindTasks:
		snap.Tasks = append([]models.Task(nil), m.tasks[ownerID]...)
	case services.KindProjects:
		snap.Projects = append([]models.Project(nil), m.projects[ownerID]...)
	}
	return snap
}

func (m *memStore) Subscribe(ownerID string, kind services.CollectionKind, subID string) (<-chan services.Snapshot, func()) {
	ch := m.bus.Subscribe(ownerID, kind, subID, 8)
	m.bus.PublishTo(ownerID, kind, subID, m.snapshot(ownerID, kind))
	return ch, func() { m.bus.Unsubscribe(ownerID, kind, subID) }
}

func (m *memStore) UpsertTask(ctx context.Context, ownerID string, task models.Task) error {
	m.mu.Lock()
	replaced := false
	for i, t := range m.tasks[ownerID] {
		if t.ID == task.ID {
			m.tasks[ownerID][i] = task
			replaced = true
			break
		}
	}
	if !replaced {
		m.tasks[ownerID] = append(m.tasks[ownerID], task)
	}
	m.mu.Unlock()
	m.bus.Publish(m.snapshot(ownerID, services.KindTasks))
	return nil
}

func (m *memStore) RemoveTask(ctx context.Context, ownerID, taskID string) error {
	m.mu.Lock()
	kept := m.tasks[ownerID][:0]
	for _, t := range m.tasks[ownerID] {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	m.tasks[ownerID] = kept
	m.mu.Unlock()
	m.bus.Publish(m.snapshot(ownerID, services.KindTasks))
	return nil
}

func (m *memStore) BatchUpsertTasks(ctx context.Context, ownerID string, tasks []models.Task) error {
	for _, t := range tasks {
		if err := m.UpsertTask(ctx, ownerID, t); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) UpsertProject(ctx context.Context, ownerID string, project models.Project) error {
	m.mu.Lock()
	replaced := false
	for i, p := range m.projects[ownerID] {
		if p.ID == project.ID {
			m.projects[ownerID][i] = project
			replaced = true
			break
		}
	}
	if !replaced {
		m.projects[ownerID] = append(m.projects[ownerID], project)
	}
	m.mu.Unlock()
	m.bus.Publish(m.snapshot(ownerID, services.KindProjects))
	return nil
}

func (m *memStore) RemoveProject(ctx context.Context, ownerID, projectID string) error {
	m.mu.Lock()
	kept := m.projects[ownerID][:0]
	for _, p := range m.projects[ownerID] {
		if p.ID != projectID {
			kept = append(kept, p)
		}
	}
	m.projects[ownerID] = kept
	m.mu.Unlock()
	m.bus.Publish(m.snapshot(ownerID, services.KindProjects))
	return nil
}

func (m *memStore) BatchUpsertProjects(ctx context.Context, ownerID string, projects []models.Project) error {
	for _, p := range projects {
		if err := m.UpsertProject(ctx, ownerID, p); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) ownerTaskCount(ownerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks[ownerID])
}

// memResolver is a minimal in-memory services.IdentityResolver
type memResolver struct {
	mu       sync.Mutex
	ownerUID string
}

func (r *memResolver) SaveOwnerUID(ctx context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ownerUID = uid
	return nil
}

func (r *memResolver) GetOwnerUID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ownerUID, nil
}

func (r *memResolver) RegisterViewer(ctx context.Context, ownerUID, viewerUID, email string) error {
	return nil
}

func handlerTestConfig() *config.Config {
	return &config.Config{
		OwnerEmail:    "owner@example.com",
		WebhookAPIKey: "hook-secret",
	}
}

// mockAuth injects an identity the way middleware.JWTMiddleware would
func mockAuth(userID, email string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("user_id", userID)
			c.Locals("user_email", email)
		}
		return c.Next()
	}
}
