package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pcagrad/cardvault/internal/config"
)

// SetSyncEnqueuer schedules background set syncs.
type SetSyncEnqueuer interface {
	EnqueueSetSync(setCode string) (string, error)
}

// SetSyncScheduler periodically re-syncs the configured sets by pushing
// sync tasks onto the queue.
type SetSyncScheduler struct {
	queue SetSyncEnqueuer
	cfg   config.SetSync

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewSetSyncScheduler creates a new scheduler instance
func NewSetSyncScheduler(queue SetSyncEnqueuer, cfg config.SetSync) *SetSyncScheduler {
	return &SetSyncScheduler{
		queue: queue,
		cfg:   cfg,
		cron:  cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if periodic sync is enabled
func (s *SetSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		log.Printf("Set sync scheduler: disabled")
		return nil
	}

	if len(s.cfg.Codes) == 0 {
		log.Printf("Set sync scheduler: no set codes configured, skipping")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.runSync()
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Set sync scheduler: started with schedule '%s' for sets %v. Next run: %v",
		s.cfg.Schedule, s.cfg.Codes, s.cron.Entry(entryID).Next)

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler
func (s *SetSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Set sync scheduler: stopped")
}

// RunNow enqueues a sync for every configured set immediately
func (s *SetSyncScheduler) RunNow() {
	go s.runSync()
}

// IsRunning returns whether the scheduler is active
func (s *SetSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next sync will occur
func (s *SetSyncScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

func (s *SetSyncScheduler) runSync() {
	for _, code := range s.cfg.Codes {
		taskID, err := s.queue.EnqueueSetSync(code)
		if err != nil {
			log.Printf("Set sync scheduler: failed to enqueue sync for %s: %v", code, err)
			continue
		}
		log.Printf("Set sync scheduler: enqueued sync for %s (task %s)", code, taskID)
	}
}
