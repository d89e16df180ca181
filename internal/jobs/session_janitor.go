package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"taskdeck/internal/services"
)

// SessionJanitor periodically signs out idle sessions so their store
// subscriptions do not accumulate. A signed-out session re-attaches
// transparently on the identity's next request.
type SessionJanitor struct {
	scheduler   gocron.Scheduler
	sync        *services.SyncService
	idleTimeout time.Duration
}

// NewSessionJanitor creates a janitor expiring sessions idle longer than
// idleTimeout.
func NewSessionJanitor(sync *services.SyncService, idleTimeout time.Duration) (*SessionJanitor, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &SessionJanitor{
		scheduler:   scheduler,
		sync:        sync,
		idleTimeout: idleTimeout,
	}, nil
}

// Start registers the sweep job and starts the scheduler
func (j *SessionJanitor) Start() error {
	interval := j.idleTimeout / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	_, err := j.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(j.sweep),
	)
	if err != nil {
		return fmt.Errorf("failed to register session sweep: %w", err)
	}

	j.scheduler.Start()
	log.Printf("⏰ Session janitor started (idle timeout %s, sweep every %s)", j.idleTimeout, interval)
	return nil
}

// Stop shuts the scheduler down
func (j *SessionJanitor) Stop() error {
	return j.scheduler.Shutdown()
}

func (j *SessionJanitor) sweep() {
	cutoff := time.Now().Add(-j.idleTimeout)
	if n := j.sync.ExpireIdle(cutoff); n > 0 {
		log.Printf("🧹 Expired %d idle session(s)", n)
	}
}
