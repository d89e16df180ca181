package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// PubSubService bridges collection changes across instances via Redis
// pub/sub. A write on one instance publishes a small "dirty" notification;
// every other instance re-reads the collection from Mongo and republishes the
// fresh snapshot on its local bus. The notification never carries data; the
// store remains the single source of truth.
type PubSubService struct {
	redis      *RedisService
	pubsub     *redis.PubSub
	instanceID string
	ctx        context.Context
	cancel     context.CancelFunc

	mu       sync.RWMutex
	handlers []func(ownerID string, kind CollectionKind)
}

// dirtyMessage is the wire format for a collection-dirty notification
type dirtyMessage struct {
	OwnerID    string         `json:"ownerId"`
	Kind       CollectionKind `json:"kind"`
	InstanceID string         `json:"instanceId"`
}

const dirtyChannel = "taskdeck:collection-dirty"

// NewPubSubService creates a new pub/sub service
func NewPubSubService(redisService *RedisService, instanceID string) *PubSubService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PubSubService{
		redis:      redisService,
		instanceID: instanceID,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// OnCollectionDirty registers a handler invoked when another instance
// reports an owner's collection changed.
func (s *PubSubService) OnCollectionDirty(handler func(ownerID string, kind CollectionKind)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start begins listening for dirty notifications
func (s *PubSubService) Start() error {
	s.pubsub = s.redis.Client().Subscribe(s.ctx, dirtyChannel)

	// Wait for subscription confirmation
	if _, err := s.pubsub.Receive(s.ctx); err != nil {
		return err
	}

	go s.processMessages()

	log.Printf("✅ [PUBSUB] Listening for collection changes (instance: %s)", s.instanceID)
	return nil
}

func (s *PubSubService) processMessages() {
	ch := s.pubsub.Channel()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handleMessage(msg)
		}
	}
}

func (s *PubSubService) handleMessage(msg *redis.Message) {
	var dirty dirtyMessage
	if err := json.Unmarshal([]byte(msg.Payload), &dirty); err != nil {
		log.Printf("⚠️ [PUBSUB] Failed to unmarshal message: %v", err)
		return
	}

	// Our own writes already republished locally
	if dirty.InstanceID == s.instanceID {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, handler := range s.handlers {
		go handler(dirty.OwnerID, dirty.Kind)
	}
}

// PublishCollectionDirty tells other instances that an owner's collection changed
func (s *PubSubService) PublishCollectionDirty(ctx context.Context, ownerID string, kind CollectionKind) error {
	data, err := json.Marshal(dirtyMessage{
		OwnerID:    ownerID,
		Kind:       kind,
		InstanceID: s.instanceID,
	})
	if err != nil {
		return err
	}
	return s.redis.Client().Publish(ctx, dirtyChannel, data).Err()
}

// Stop stops the pub/sub service
func (s *PubSubService) Stop() error {
	s.cancel()
	if s.pubsub != nil {
		return s.pubsub.Close()
	}
	return nil
}
