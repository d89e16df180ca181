package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskdeck/internal/database"
	"taskdeck/internal/models"
)

// Store is the document-store adapter boundary. Subscriptions deliver the
// complete current collection immediately and again after every change;
// writes merge supplied fields (never clearing omitted ones) and are followed
// by a fresh snapshot publish rather than any local mutation.
type Store interface {
	// Subscribe registers a live subscription for an owner's collection.
	// The returned channel receives the present full snapshot first, then one
	// per subsequent change. The cancel func tears the subscription down
	// synchronously.
	Subscribe(ownerID string, kind CollectionKind, subID string) (<-chan Snapshot, func())

	UpsertTask(ctx context.Context, ownerID string, task models.Task) error
	RemoveTask(ctx context.Context, ownerID, taskID string) error
	BatchUpsertTasks(ctx context.Context, ownerID string, tasks []models.Task) error

	UpsertProject(ctx context.Context, ownerID string, project models.Project) error
	RemoveProject(ctx context.Context, ownerID, projectID string) error
	BatchUpsertProjects(ctx context.Context, ownerID string, projects []models.Project) error
}

// taskDoc wraps a task with its owner scope. The Mongo _id is composite
// (owner/task) because task ids are only unique within one owner's collection.
type taskDoc struct {
	DocID     string      `bson:"_id"`
	OwnerID   string      `bson:"ownerId"`
	Task      models.Task `bson:"task"`
	CreatedAt int64       `bson:"createdAt"`
}

type projectDoc struct {
	DocID     string         `bson:"_id"`
	OwnerID   string         `bson:"ownerId"`
	Project   models.Project `bson:"project"`
	CreatedAt int64          `bson:"createdAt"`
}

func docID(ownerID, entityID string) string {
	return ownerID + "/" + entityID
}

// DocumentStore is the MongoDB-backed Store. Every successful write re-reads
// the owner's full collection and publishes it on the snapshot bus, so local
// state anywhere in the process is only ever assigned from snapshot delivery,
// never from a write's return value.
type DocumentStore struct {
	db       *database.MongoDB
	tasks    *mongo.Collection
	projects *mongo.Collection
	bus      *SnapshotBus
	pubsub   *PubSubService // optional cross-instance fanout, may be nil
}

// NewDocumentStore creates a new MongoDB-backed document store
func NewDocumentStore(db *database.MongoDB, bus *SnapshotBus, pubsub *PubSubService) *DocumentStore {
	s := &DocumentStore{
		db:       db,
		tasks:    db.Collection(database.CollectionTasks),
		projects: db.Collection(database.CollectionProjects),
		bus:      bus,
		pubsub:   pubsub,
	}
	if pubsub != nil {
		pubsub.OnCollectionDirty(s.republish)
	}
	return s
}

// Subscribe registers a bus subscription and synchronously delivers the
// current full snapshot before returning the channel.
func (s *DocumentStore) Subscribe(ownerID string, kind CollectionKind, subID string) (<-chan Snapshot, func()) {
	ch := s.bus.Subscribe(ownerID, kind, subID, 8)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := s.readSnapshot(ctx, ownerID, kind)
	if err != nil {
		log.Printf("⚠️ [DOC-STORE] Initial snapshot read failed (owner=%s kind=%s): %v", ownerID, kind, err)
		// The subscriber still gets the next post-write snapshot.
	} else {
		s.bus.PublishTo(ownerID, kind, subID, snap)
	}

	return ch, func() { s.bus.Unsubscribe(ownerID, kind, subID) }
}

// readSnapshot reads an owner's complete collection in creation order
func (s *DocumentStore) readSnapshot(ctx context.Context, ownerID string, kind CollectionKind) (Snapshot, error) {
	snap := Snapshot{OwnerID: ownerID, Kind: kind}
	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	switch kind {
	case KindTasks:
		cursor, err := s.tasks.Find(ctx, bson.M{"ownerId": ownerID}, findOpts)
		if err != nil {
			return snap, fmt.Errorf("failed to read tasks: %w", err)
		}
		defer cursor.Close(ctx)

		var docs []taskDoc
		if err := cursor.All(ctx, &docs); err != nil {
			return snap, fmt.Errorf("failed to decode tasks: %w", err)
		}
		snap.Tasks = make([]models.Task, 0, len(docs))
		for _, d := range docs {
			snap.Tasks = append(snap.Tasks, d.Task)
		}
	case KindProjects:
		cursor, err := s.projects.Find(ctx, bson.M{"ownerId": ownerID}, findOpts)
		if err != nil {
			return snap, fmt.Errorf("failed to read projects: %w", err)
		}
		defer cursor.Close(ctx)

		var docs []projectDoc
		if err := cursor.All(ctx, &docs); err != nil {
			return snap, fmt.Errorf("failed to decode projects: %w", err)
		}
		snap.Projects = make([]models.Project, 0, len(docs))
		for _, d := range docs {
			snap.Projects = append(snap.Projects, d.Project)
		}
	}

	return snap, nil
}

// republish re-reads a collection and publishes it locally. Runs after our
// own writes and when another instance reports the collection dirty.
func (s *DocumentStore) republish(ownerID string, kind CollectionKind) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := s.readSnapshot(ctx, ownerID, kind)
	if err != nil {
		log.Printf("⚠️ [DOC-STORE] Snapshot republish failed (owner=%s kind=%s): %v", ownerID, kind, err)
		return
	}
	s.bus.Publish(snap)
}

// notifyChange fans a change out: republish locally, nudge other instances
func (s *DocumentStore) notifyChange(ctx context.Context, ownerID string, kind CollectionKind) {
	s.republish(ownerID, kind)
	if s.pubsub != nil {
		if err := s.pubsub.PublishCollectionDirty(ctx, ownerID, kind); err != nil {
			log.Printf("⚠️ [DOC-STORE] Cross-instance publish failed: %v", err)
		}
	}
}

// UpsertTask creates the task if absent, else merges the supplied fields into
// the existing document. Omitted fields are never cleared.
func (s *DocumentStore) UpsertTask(ctx context.Context, ownerID string, task models.Task) error {
	update := bson.M{
		"$set": bson.M{"ownerId": ownerID, "task": task},
		"$setOnInsert": bson.M{
			"createdAt": time.Now().UnixMilli(),
		},
	}
	_, err := s.tasks.UpdateOne(ctx,
		bson.M{"_id": docID(ownerID, task.ID)},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert task: %w", err)
	}
	s.notifyChange(ctx, ownerID, KindTasks)
	return nil
}

// RemoveTask deletes a task; idempotent if already absent
func (s *DocumentStore) RemoveTask(ctx context.Context, ownerID, taskID string) error {
	_, err := s.tasks.DeleteOne(ctx, bson.M{"_id": docID(ownerID, taskID)})
	if err != nil {
		return fmt.Errorf("failed to remove task: %w", err)
	}
	s.notifyChange(ctx, ownerID, KindTasks)
	return nil
}

// BatchUpsertTasks applies multiple upserts as one atomic unit
func (s *DocumentStore) BatchUpsertTasks(ctx context.Context, ownerID string, tasks []models.Task) error {
	now := time.Now().UnixMilli()
	err := s.db.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		for _, t := range tasks {
			_, err := s.tasks.UpdateOne(sessCtx,
				bson.M{"_id": docID(ownerID, t.ID)},
				bson.M{
					"$set":         bson.M{"ownerId": ownerID, "task": t},
					"$setOnInsert": bson.M{"createdAt": now},
				},
				options.Update().SetUpsert(true),
			)
			if err != nil {
				return fmt.Errorf("failed to batch upsert task %s: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notifyChange(ctx, ownerID, KindTasks)
	return nil
}

// UpsertProject creates or merges a project document
func (s *DocumentStore) UpsertProject(ctx context.Context, ownerID string, project models.Project) error {
	update := bson.M{
		"$set": bson.M{"ownerId": ownerID, "project": project},
		"$setOnInsert": bson.M{
			"createdAt": time.Now().UnixMilli(),
		},
	}
	_, err := s.projects.UpdateOne(ctx,
		bson.M{"_id": docID(ownerID, project.ID)},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	s.notifyChange(ctx, ownerID, KindProjects)
	return nil
}

// RemoveProject deletes a project; idempotent if already absent
func (s *DocumentStore) RemoveProject(ctx context.Context, ownerID, projectID string) error {
	_, err := s.projects.DeleteOne(ctx, bson.M{"_id": docID(ownerID, projectID)})
	if err != nil {
		return fmt.Errorf("failed to remove project: %w", err)
	}
	s.notifyChange(ctx, ownerID, KindProjects)
	return nil
}

// BatchUpsertProjects applies multiple upserts as one atomic unit
func (s *DocumentStore) BatchUpsertProjects(ctx context.Context, ownerID string, projects []models.Project) error {
	now := time.Now().UnixMilli()
	err := s.db.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		for _, p := range projects {
			_, err := s.projects.UpdateOne(sessCtx,
				bson.M{"_id": docID(ownerID, p.ID)},
				bson.M{
					"$set":         bson.M{"ownerId": ownerID, "project": p},
					"$setOnInsert": bson.M{"createdAt": now},
				},
				options.Update().SetUpsert(true),
			)
			if err != nil {
				return fmt.Errorf("failed to batch upsert project %s: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notifyChange(ctx, ownerID, KindProjects)
	return nil
}
