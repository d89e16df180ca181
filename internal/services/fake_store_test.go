package services

import (
	"context"
	"sync"

	"taskdeck/internal/models"
)

// fakeStore is an in-memory Store with the same delivery contract as the
// Mongo-backed one: subscribers get the current full snapshot immediately and
// a fresh full snapshot after every write.
type fakeStore struct {
	mu       sync.Mutex
	tasks    map[string][]models.Task    // ownerID → collection
	projects map[string][]models.Project // ownerID → collection
	bus      *SnapshotBus

	failTaskWrites bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:    make(map[string][]models.Task),
		projects: make(map[string][]models.Project),
		bus:      NewSnapshotBus(),
	}
}

func (f *fakeStore) snapshotLocked(ownerID string, kind CollectionKind) Snapshot {
	snap := Snapshot{OwnerID: ownerID, Kind: kind}
	switch kind {
	case KindTasks:
		snap.Tasks = append([]models.Task(nil), f.tasks[ownerID]...)
	case KindProjects:
		snap.Projects = append([]models.Project(nil), f.projects[ownerID]...)
	}
	return snap
}

func (f *fakeStore) publish(ownerID string, kind CollectionKind) {
	f.mu.Lock()
	snap := f.snapshotLocked(ownerID, kind)
	f.mu.Unlock()
	f.bus.Publish(snap)
}

func (f *fakeStore) Subscribe(ownerID string, kind CollectionKind, subID string) (<-chan Snapshot, func()) {
	ch := f.bus.Subscribe(ownerID, kind, subID, 8)
	f.mu.Lock()
	snap := f.snapshotLocked(ownerID, kind)
	f.mu.Unlock()
	f.bus.PublishTo(ownerID, kind, subID, snap)
	return ch, func() { f.bus.Unsubscribe(ownerID, kind, subID) }
}

func (f *fakeStore) UpsertTask(ctx context.Context, ownerID string, task models.Task) error {
	if f.failTaskWrites {
		return context.DeadlineExceeded
	}
	f.mu.Lock()
	replaced := false
	for i, t := range f.tasks[ownerID] {
		if t.ID == task.ID {
			f.tasks[ownerID][i] = task
			replaced = true
			break
		}
	}
	if !replaced {
		f.tasks[ownerID] = append(f.tasks[ownerID], task)
	}
	f.mu.Unlock()
	f.publish(ownerID, KindTasks)
	return nil
}

func (f *fakeStore) RemoveTask(ctx context.Context, ownerID, taskID string) error {
	f.mu.Lock()
	kept := f.tasks[ownerID][:0]
	for _, t := range f.tasks[ownerID] {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	f.tasks[ownerID] = kept
	f.mu.Unlock()
	f.publish(ownerID, KindTasks)
	return nil
}

func (f *fakeStore) BatchUpsertTasks(ctx context.Context, ownerID string, tasks []models.Task) error {
	for _, t := range tasks {
		if err := f.UpsertTask(ctx, ownerID, t); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) UpsertProject(ctx context.Context, ownerID string, project models.Project) error {
	f.mu.Lock()
	replaced := false
	for i, p := range f.projects[ownerID] {
		if p.ID == project.ID {
			f.projects[ownerID][i] = project
			replaced = true
			break
		}
	}
	if !replaced {
		f.projects[ownerID] = append(f.projects[ownerID], project)
	}
	f.mu.Unlock()
	f.publish(ownerID, KindProjects)
	return nil
}

func (f *fakeStore) RemoveProject(ctx context.Context, ownerID, projectID string) error {
	f.mu.Lock()
	kept := f.projects[ownerID][:0]
	for _, p := range f.projects[ownerID] {
		if p.ID != projectID {
			kept = append(kept, p)
		}
	}
	f.projects[ownerID] = kept
	f.mu.Unlock()
	f.publish(ownerID, KindProjects)
	return nil
}

func (f *fakeStore) BatchUpsertProjects(ctx context.Context, ownerID string, projects []models.Project) error {
	for _, p := range projects {
		if err := f.UpsertProject(ctx, ownerID, p); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) taskCount(ownerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks[ownerID])
}

func (f *fakeStore) projectCount(ownerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.projects[ownerID])
}

// fakeResolver is an in-memory IdentityResolver
type fakeResolver struct {
	mu       sync.Mutex
	ownerUID string
	viewers  map[string]string // viewerUID → email
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{viewers: make(map[string]string)}
}

func (r *fakeResolver) SaveOwnerUID(ctx context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ownerUID = uid
	return nil
}

func (r *fakeResolver) GetOwnerUID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ownerUID, nil
}

func (r *fakeResolver) RegisterViewer(ctx context.Context, ownerUID, viewerUID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewers[viewerUID] = email
	return nil
}
