package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskdeck/internal/database"
	"taskdeck/internal/models"
)

const ownerPointerKey = "owner"

// IdentityService persists the owner-pointer record and viewer registrations.
// The pointer is produced on every owner sign-in and consumed on every viewer
// sign-in, so a viewer session can find the collections to subscribe to
// without the owner's uid being hardcoded anywhere.
type IdentityService struct {
	meta    *mongo.Collection
	viewers *mongo.Collection
}

// NewIdentityService creates a new identity service
func NewIdentityService(db *database.MongoDB) *IdentityService {
	return &IdentityService{
		meta:    db.Collection(database.CollectionMeta),
		viewers: db.Collection(database.CollectionViewers),
	}
}

// SaveOwnerUID records the owner's opaque uid. Called on every owner sign-in.
func (s *IdentityService) SaveOwnerUID(ctx context.Context, uid string) error {
	_, err := s.meta.UpdateOne(ctx,
		bson.M{"_id": ownerPointerKey},
		bson.M{"$set": bson.M{
			"ownerUid":  uid,
			"updatedAt": time.Now().UnixMilli(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save owner pointer: %w", err)
	}
	return nil
}

// GetOwnerUID returns the owner's uid, or "" when no owner has signed in yet
func (s *IdentityService) GetOwnerUID(ctx context.Context) (string, error) {
	var pointer models.OwnerPointer
	err := s.meta.FindOne(ctx, bson.M{"_id": ownerPointerKey}).Decode(&pointer)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read owner pointer: %w", err)
	}
	return pointer.OwnerUID, nil
}

// RegisterViewer records that a viewer uid has attached to the owner's data
func (s *IdentityService) RegisterViewer(ctx context.Context, ownerUID, viewerUID, email string) error {
	_, err := s.viewers.UpdateOne(ctx,
		bson.M{"_id": viewerUID},
		bson.M{
			"$set": bson.M{"ownerUid": ownerUID, "email": email},
			"$setOnInsert": bson.M{
				"createdAt": time.Now().UnixMilli(),
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to register viewer: %w", err)
	}
	return nil
}
