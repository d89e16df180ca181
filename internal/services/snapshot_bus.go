package services

import (
	"log"
	"sync"

	"taskdeck/internal/models"
)

// CollectionKind identifies one of the two synced collections
type CollectionKind string

const (
	KindTasks    CollectionKind = "tasks"
	KindProjects CollectionKind = "projects"
)

// Snapshot is one delivery on a collection subscription: the complete current
// collection for an owner, never a diff. Exactly one of Tasks/Projects is set,
// matching Kind. A stale snapshot is harmless, it is superseded wholesale by
// the next one.
type Snapshot struct {
	OwnerID  string
	Kind     CollectionKind
	Tasks    []models.Task
	Projects []models.Project
}

type busKey struct {
	ownerID string
	kind    CollectionKind
}

// SnapshotBus is an in-memory pub/sub for collection snapshots, scoped per
// (owner, collection). It decouples document-store writes from session
// lifecycle: the store publishes full snapshots here, and every live session
// subscribed to that owner receives them.
type SnapshotBus struct {
	mu          sync.RWMutex
	subscribers map[busKey]map[string]chan Snapshot // (owner,kind) → subID → chan
	metrics     *Metrics
}

// NewSnapshotBus creates a new snapshot bus
func NewSnapshotBus() *SnapshotBus {
	return &SnapshotBus{
		subscribers: make(map[busKey]map[string]chan Snapshot),
	}
}

// SetMetrics attaches publish counters. Metrics are created after the bus at
// startup, so this is a setter rather than a constructor argument.
func (b *SnapshotBus) SetMetrics(m *Metrics) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = m
}

// Subscribe creates a new snapshot channel for an owner's collection.
// Returns a receive-only channel; the caller must Unsubscribe with the same
// subID when done.
func (b *SnapshotBus) Subscribe(ownerID string, kind CollectionKind, subID string, bufSize int) <-chan Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := busKey{ownerID, kind}
	ch := make(chan Snapshot, bufSize)
	if _, ok := b.subscribers[key]; !ok {
		b.subscribers[key] = make(map[string]chan Snapshot)
	}
	b.subscribers[key][subID] = ch

	log.Printf("📡 [SNAPSHOT-BUS] Subscribe: owner=%s kind=%s sub=%s (total=%d)",
		ownerID, kind, subID, len(b.subscribers[key]))

	return ch
}

// Unsubscribe removes a subscription. The channel is NOT closed; the
// subscriber's goroutine exits via its own done signal, and the channel is
// GC'd once unreachable.
func (b *SnapshotBus) Unsubscribe(ownerID string, kind CollectionKind, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := busKey{ownerID, kind}
	if subs, ok := b.subscribers[key]; ok {
		delete(subs, subID)
		if len(subs) == 0 {
			delete(b.subscribers, key)
		}
		log.Printf("📡 [SNAPSHOT-BUS] Unsubscribe: owner=%s kind=%s sub=%s (remaining=%d)",
			ownerID, kind, subID, len(subs))
	}
}

// PublishTo delivers a snapshot to a single subscriber, used for the initial
// full-state delivery right after Subscribe.
func (b *SnapshotBus) PublishTo(ownerID string, kind CollectionKind, subID string, snap Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if ch, ok := b.subscribers[busKey{ownerID, kind}][subID]; ok {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Publish delivers a snapshot to every subscriber of the owner's collection.
// Non-blocking: if a subscriber's channel is full, the oldest buffered
// snapshot is dropped in its favor, since only the latest snapshot matters.
func (b *SnapshotBus) Publish(snap Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.SnapshotsPublished.WithLabelValues(string(snap.Kind)).Inc()
	}

	subs := b.subscribers[busKey{snap.OwnerID, snap.Kind}]
	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
			// Full buffer: evict one stale snapshot and retry once
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

// SubscriberCount returns the number of active subscribers for an owner's collection
func (b *SnapshotBus) SubscriberCount(ownerID string, kind CollectionKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers[busKey{ownerID, kind}])
}
