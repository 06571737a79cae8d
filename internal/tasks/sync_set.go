package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	cardsync "github.com/pcagrad/cardvault/internal/sync"
)

// SyncSetTask syncs one set from the remote catalog in the background.
type SyncSetTask struct {
	SetCode string `json:"set_code"`
}

// Config returns the queue configuration for set sync tasks. Syncs are
// not retried automatically; a failed sync is re-requested explicitly.
func (t SyncSetTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sync_set",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     15 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SyncSetProcessor creates a processor function for SyncSetTask.
func SyncSetProcessor(service *cardsync.Service) backlite.QueueProcessor[SyncSetTask] {
	return func(ctx context.Context, task SyncSetTask) error {
		if service == nil {
			return fmt.Errorf("sync service not configured")
		}

		result, err := service.SyncSet(ctx, task.SetCode)
		if err != nil {
			return fmt.Errorf("sync set %s: %w", task.SetCode, err)
		}

		log.Printf("[TASK] Synced set %s: %d of %d cards saved",
			task.SetCode, result.CardsSaved, result.CardsFound)
		return nil
	}
}

// NewSyncSetQueue creates a backlite queue for set sync tasks.
func NewSyncSetQueue(service *cardsync.Service) backlite.Queue {
	return backlite.NewQueue(SyncSetProcessor(service))
}
