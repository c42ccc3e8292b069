// Package jobs contains background workers that run on a schedule.
// The publish scheduler periodically flips scheduled changelog entries whose
// publish time has passed to published. Jobs are designed to be idempotent:
// re-running after a crash produces the same result as a clean run.
package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shiplog/shiplog-server/internal/db/repositories"
	"github.com/shiplog/shiplog-server/internal/telemetry"
)

// PublishScheduler flips due scheduled entries to published on a fixed interval
type PublishScheduler struct {
	entries  *repositories.EntryRepository
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewPublishScheduler creates a publish scheduler
func NewPublishScheduler(entries *repositories.EntryRepository, interval time.Duration) *PublishScheduler {
	return &PublishScheduler{
		entries:  entries,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scheduler loop. An initial scan runs immediately so entries
// that came due while the server was down publish on boot rather than waiting
// for the first tick.
func (j *PublishScheduler) Start(ctx context.Context) {
	log.Printf("Starting publish scheduler with interval of %s", j.interval)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.publishDue(ctx)

		for {
			select {
			case <-ticker.C:
				j.publishDue(ctx)
			case <-j.stopCh:
				log.Println("Publish scheduler stopped")
				return
			case <-ctx.Done():
				log.Println("Publish scheduler context cancelled")
				return
			}
		}
	}()
}

// Stop stops the scheduler and waits for the loop to exit
func (j *PublishScheduler) Stop() {
	close(j.stopCh)
	j.wg.Wait()
}

// publishDue flips every due scheduled entry in one conditional UPDATE, so
// concurrent runners and crash-reruns cannot double-publish
func (j *PublishScheduler) publishDue(ctx context.Context) {
	ids, err := j.entries.PublishDue(ctx, time.Now())
	if err != nil {
		log.Printf("Error publishing due entries: %v", err)
		return
	}

	if len(ids) == 0 {
		return
	}

	log.Printf("Published %d scheduled entries", len(ids))
	telemetry.EntriesPublishedTotal.WithLabelValues("scheduled").Add(float64(len(ids)))
}
