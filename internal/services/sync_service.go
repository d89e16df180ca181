package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/config"
	"taskdeck/internal/logging"
	"taskdeck/internal/models"
)

// SessionState tracks where a session is in the sign-in/sync lifecycle
type SessionState string

const (
	StateUnauthenticated  SessionState = "unauthenticated"
	StateResolving        SessionState = "resolving"
	StateAwaitingOwner    SessionState = "awaiting_owner"
	StateSyncingOwn       SessionState = "syncing_own"
	StateSyncingDelegated SessionState = "syncing_delegated"
)

// Identity is a signed-in identity as handed to us by the auth boundary
type Identity struct {
	UID   string
	Email string
}

// IdentityResolver is the persistence boundary for owner-pointer resolution
// and viewer registration. Satisfied by IdentityService.
type IdentityResolver interface {
	SaveOwnerUID(ctx context.Context, uid string) error
	GetOwnerUID(ctx context.Context) (string, error)
	RegisterViewer(ctx context.Context, ownerUID, viewerUID, email string) error
}

// Session is the explicit per-sign-in context object. It carries identity and
// role, owns the session's single task subscription and single project
// subscription, and holds the read-through cache of the target collections.
// The cache is assigned only from snapshot delivery; mutations write through
// the store and wait for the subscription to refire.
type Session struct {
	ID       string
	Identity Identity
	IsViewer bool

	// TargetOwnerID is the identity whose collections this session reads.
	// Empty for a viewer whose owner has never signed in.
	TargetOwnerID string

	mu                sync.RWMutex
	state             SessionState
	tasks             []models.Task
	projects          []models.Project
	selectedProjectID string
	lastActive        time.Time

	// Subscription lifecycle. projectsLoaded guards the seed-once behavior:
	// the post-seed empty echo must not re-trigger seeding.
	projectsLoaded bool
	backfilled     bool
	cancelTasks    func()
	cancelProjects func()
	done           chan struct{}

	watchers map[string]chan Snapshot
}

// State returns the session's lifecycle state
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CanWrite reports whether mutations are allowed on this session. Viewers and
// unresolved sessions get silent no-ops, never errors.
func (s *Session) CanWrite() bool {
	return !s.IsViewer && s.TargetOwnerID != ""
}

// Tasks returns the last-known full task snapshot
func (s *Session) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Projects returns the last-known project snapshot in canonical display order
func (s *Session) Projects() []models.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// TaskByID returns the last-known record for a task id
func (s *Session) TaskByID(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

// ProjectByID returns the last-known record for a project id
func (s *Session) ProjectByID(id string) (models.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.projects {
		if p.ID == id {
			return p, true
		}
	}
	return models.Project{}, false
}

// SelectProject sets the session's project filter ("" = all projects)
func (s *Session) SelectProject(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedProjectID = id
}

// SelectedProject returns the session's project filter
func (s *Session) SelectedProject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedProjectID
}

// Touch marks the session active, deferring idle expiry
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

// IdleSince returns the time of the session's last activity
func (s *Session) IdleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Watch registers a watcher channel receiving every snapshot the session
// applies, buffered so a slow consumer only ever misses stale state.
func (s *Session) Watch(watchID string) <-chan Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Snapshot, 8)
	s.watchers[watchID] = ch
	return ch
}

// Unwatch removes a watcher
func (s *Session) Unwatch(watchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, watchID)
}

// closeWatchersLocked signals stream consumers that the session is gone.
// Caller holds s.mu.
func (s *Session) closeWatchersLocked() {
	for id, ch := range s.watchers {
		close(ch)
		delete(s.watchers, id)
	}
}

func (s *Session) notifyWatchers(snap Snapshot) {
	for _, ch := range s.watchers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// SyncService owns session lifecycle: resolving a signed-in identity into an
// owner or viewer session, seeding first-run data, and keeping exactly one
// live task subscription and one live project subscription per session.
type SyncService struct {
	store     Store
	resolver  IdentityResolver
	cfg       *config.Config
	workspace *config.Workspace

	mu        sync.RWMutex
	sessions  map[string]*Session
	byUID     map[string]string // identity uid → session id
}

// NewSyncService creates a new sync service
func NewSyncService(store Store, resolver IdentityResolver, cfg *config.Config, workspace *config.Workspace) *SyncService {
	return &SyncService{
		store:     store,
		resolver:  resolver,
		cfg:       cfg,
		workspace: workspace,
		sessions:  make(map[string]*Session),
		byUID:     make(map[string]string),
	}
}

// SetWorkspace swaps the workspace definition (hot reload)
func (s *SyncService) SetWorkspace(ws *config.Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspace = ws
}

// Workspace returns the current workspace definition
func (s *SyncService) Workspace() *config.Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workspace
}

// Session returns a live session by id
func (s *SyncService) Session(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// SessionFor returns the live session for an identity, signing in a new one
// if none exists. This is how stateless HTTP requests attach to a session.
func (s *SyncService) SessionFor(ctx context.Context, identity Identity) (*Session, error) {
	s.mu.RLock()
	if id, ok := s.byUID[identity.UID]; ok {
		if sess, ok := s.sessions[id]; ok {
			s.mu.RUnlock()
			// A viewer who signed in before the owner ever did has no target
			// yet; re-run resolution so they attach once the owner appears.
			if sess.IsViewer && sess.State() == StateAwaitingOwner {
				return s.SignIn(ctx, identity)
			}
			sess.Touch()
			return sess, nil
		}
	}
	s.mu.RUnlock()

	return s.SignIn(ctx, identity)
}

// SessionCount returns the number of live sessions
func (s *SyncService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SignIn resolves an identity into a syncing session.
// Owner email → sync own data and refresh the owner pointer. Allow-listed
// viewer → resolve the owner's uid and sync it read-only. Anyone else →
// their own (initially empty, then seeded) personal space.
func (s *SyncService) SignIn(ctx context.Context, identity Identity) (*Session, error) {
	sess := &Session{
		ID:         uuid.New().String(),
		Identity:   identity,
		state:      StateResolving,
		lastActive: time.Now(),
		done:       make(chan struct{}),
		watchers:   make(map[string]chan Snapshot),
	}

	switch {
	case identity.Email != "" && identity.Email == s.cfg.OwnerEmail:
		if err := s.resolver.SaveOwnerUID(ctx, identity.UID); err != nil {
			return nil, fmt.Errorf("failed to save owner pointer: %w", err)
		}
		sess.TargetOwnerID = identity.UID
		sess.state = StateSyncingOwn

	case s.cfg.IsViewerEmail(identity.Email):
		sess.IsViewer = true
		ownerUID, err := s.resolver.GetOwnerUID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve owner: %w", err)
		}
		if ownerUID != "" {
			if err := s.resolver.RegisterViewer(ctx, ownerUID, identity.UID, identity.Email); err != nil {
				return nil, fmt.Errorf("failed to register viewer: %w", err)
			}
			sess.TargetOwnerID = ownerUID
			sess.state = StateSyncingDelegated
		} else {
			// Owner never signed in: the viewer session stays empty with no
			// subscriptions. SessionFor retries the resolution on later requests.
			sess.state = StateAwaitingOwner
		}

	default:
		// Unknown identity syncs an empty personal space
		sess.TargetOwnerID = identity.UID
		sess.state = StateSyncingOwn
	}

	if sess.TargetOwnerID != "" {
		s.startSync(sess)
	}

	s.mu.Lock()
	// One session per identity: replace any previous one for this uid,
	// cancelling its subscription pair before the new one takes over.
	if oldID, ok := s.byUID[identity.UID]; ok && oldID != sess.ID {
		if old, ok := s.sessions[oldID]; ok {
			delete(s.sessions, oldID)
			old.mu.Lock()
			s.stopSyncLocked(old)
			old.tasks = nil
			old.projects = nil
			old.state = StateUnauthenticated
			old.closeWatchersLocked()
			old.mu.Unlock()
		}
	}
	s.sessions[sess.ID] = sess
	s.byUID[identity.UID] = sess.ID
	s.mu.Unlock()

	log.Printf("🔐 [SYNC] Session %s: uid=%s state=%s viewer=%v target=%s",
		sess.ID, identity.UID, sess.State(), sess.IsViewer, sess.TargetOwnerID)

	return sess, nil
}

// SignOut cancels the session's subscriptions synchronously, clears its
// cached collections, and removes it.
func (s *SyncService) SignOut(sessionID string) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
		if s.byUID[sess.Identity.UID] == sessionID {
			delete(s.byUID, sess.Identity.UID)
		}
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	sess.mu.Lock()
	s.stopSyncLocked(sess)
	sess.tasks = nil
	sess.projects = nil
	sess.selectedProjectID = ""
	sess.state = StateUnauthenticated
	sess.closeWatchersLocked()
	sess.mu.Unlock()

	log.Printf("🔓 [SYNC] Session %s signed out", sessionID)
}

// stopSyncLocked cancels the subscription pair. Caller holds sess.mu.
// Cancellation happens before any new subscription is made, so a stale
// subscription can never resurrect cleared state.
func (s *SyncService) stopSyncLocked(sess *Session) {
	if sess.done != nil {
		close(sess.done)
		sess.done = nil
	}
	if sess.cancelTasks != nil {
		sess.cancelTasks()
		sess.cancelTasks = nil
	}
	if sess.cancelProjects != nil {
		sess.cancelProjects()
		sess.cancelProjects = nil
	}
}

// startSync wires the session's subscription pair, cancelling any previous
// pair first.
func (s *SyncService) startSync(sess *Session) {
	sess.mu.Lock()

	s.stopSyncLocked(sess)
	sess.done = make(chan struct{})
	sess.projectsLoaded = false
	sess.backfilled = false
	done := sess.done

	projectsCh, cancelProjects := s.store.Subscribe(sess.TargetOwnerID, KindProjects, sess.ID)
	tasksCh, cancelTasks := s.store.Subscribe(sess.TargetOwnerID, KindTasks, sess.ID)
	sess.cancelProjects = cancelProjects
	sess.cancelTasks = cancelTasks

	sess.mu.Unlock()

	logging.WithSession(sess.ID, sess.Identity.UID, sess.TargetOwnerID).
		Debug("subscription pair started", "viewer", sess.IsViewer)

	go s.pumpProjects(sess, projectsCh, done)
	go s.pumpTasks(sess, tasksCh, done)
}

// pumpTasks applies task snapshots to the session cache
func (s *SyncService) pumpTasks(sess *Session, ch <-chan Snapshot, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			sess.mu.Lock()
			// A snapshot already in flight when the subscription pair was torn
			// down or replaced must not resurrect cleared state.
			if sess.done != done {
				sess.mu.Unlock()
				return
			}
			sess.tasks = snap.Tasks
			sess.notifyWatchers(snap)
			sess.mu.Unlock()
		}
	}
}

// pumpProjects applies project snapshots and handles first-run seeding plus
// the one-time canonical-project backfill.
func (s *SyncService) pumpProjects(sess *Session, ch <-chan Snapshot, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			s.applyProjectSnapshot(sess, snap, done)
		}
	}
}

func (s *SyncService) applyProjectSnapshot(sess *Session, snap Snapshot, done <-chan struct{}) {
	ws := s.Workspace()

	sess.mu.Lock()
	if sess.done != done {
		sess.mu.Unlock()
		return
	}
	firstLoad := !sess.projectsLoaded
	sess.projectsLoaded = true
	canWrite := !sess.IsViewer && sess.TargetOwnerID != ""
	needBackfill := !sess.backfilled
	sess.mu.Unlock()

	// First load coming back empty means a brand-new identity: seed the
	// default workspace with one batch write per collection, then wait for
	// the subscription to refire with the seeded data. No local insert.
	if firstLoad && len(snap.Projects) == 0 && canWrite {
		s.seedDefaults(sess)
		return
	}

	// One-time backfill: canonical projects added after a user's first run
	// are upserted once; the snapshot refires with the new project.
	if canWrite && needBackfill && len(snap.Projects) > 0 {
		if missing, ok := s.missingCanonicalSeed(ws, snap.Projects); ok {
			sess.mu.Lock()
			sess.backfilled = true
			sess.mu.Unlock()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.store.UpsertProject(ctx, sess.TargetOwnerID, missing); err != nil {
				log.Printf("⚠️ [SYNC] Project backfill failed: %v", err)
			} else {
				return // snapshot will refire with the backfilled project
			}
		}
	}

	// Canonical display order; unranked projects keep store order after all
	// ranked ones.
	projects := make([]models.Project, len(snap.Projects))
	copy(projects, snap.Projects)
	sort.SliceStable(projects, func(i, j int) bool {
		return ws.ProjectRank(projects[i].ID) < ws.ProjectRank(projects[j].ID)
	})
	snap.Projects = projects

	sess.mu.Lock()
	if sess.done != done {
		sess.mu.Unlock()
		return
	}
	sess.projects = projects
	sess.notifyWatchers(snap)
	sess.mu.Unlock()
}

// missingCanonicalSeed finds the first backfill project absent from the
// snapshot. Only projects explicitly listed for backfill are re-added;
// deleting any other canonical project stays deleted.
func (s *SyncService) missingCanonicalSeed(ws *config.Workspace, present []models.Project) (models.Project, bool) {
	have := make(map[string]bool, len(present))
	for _, p := range present {
		have[p.ID] = true
	}
	for _, id := range ws.BackfillProjects {
		if have[id] {
			continue
		}
		for _, seed := range ws.SeedProjects {
			if seed.ID == id {
				return seed, true
			}
		}
	}
	return models.Project{}, false
}

func (s *SyncService) seedDefaults(sess *Session) {
	ws := s.Workspace()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	now := time.Now().UnixMilli()
	tasks := make([]models.Task, len(ws.SeedTasks))
	for i, t := range ws.SeedTasks {
		t.Notes = ""
		if t.Tags == nil {
			t.Tags = []string{}
		}
		if t.Bucket == "" {
			t.Bucket = models.BucketInbox
		}
		t.CreatedAt = now
		tasks[i] = t
	}

	if err := s.store.BatchUpsertProjects(ctx, sess.TargetOwnerID, ws.SeedProjects); err != nil {
		log.Printf("❌ [SYNC] Failed to seed projects for %s: %v", sess.TargetOwnerID, err)
		return
	}
	if err := s.store.BatchUpsertTasks(ctx, sess.TargetOwnerID, tasks); err != nil {
		log.Printf("❌ [SYNC] Failed to seed tasks for %s: %v", sess.TargetOwnerID, err)
		return
	}

	log.Printf("🌱 [SYNC] Seeded default workspace for new identity %s (%d projects, %d tasks)",
		sess.TargetOwnerID, len(ws.SeedProjects), len(tasks))
}

// ExpireIdle signs out sessions with no activity since the cutoff. Returns
// the number of sessions removed.
func (s *SyncService) ExpireIdle(cutoff time.Time) int {
	s.mu.RLock()
	var stale []string
	for id, sess := range s.sessions {
		if sess.IdleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range stale {
		s.SignOut(id)
	}
	return len(stale)
}
