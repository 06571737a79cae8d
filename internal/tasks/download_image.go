package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/pcagrad/cardvault/internal/database"
	"github.com/pcagrad/cardvault/internal/images"
)

// DownloadImageTask downloads one card's artwork in the background.
type DownloadImageTask struct {
	CardID string `json:"card_id"`
}

// Config returns the queue configuration for artwork download tasks.
func (t DownloadImageTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "download_image",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// DownloadImageProcessor creates a processor function for
// DownloadImageTask. The processor loads the card, downloads its
// artwork and persists the updated image fields.
func DownloadImageProcessor(db *database.Database, manager *images.Manager) backlite.QueueProcessor[DownloadImageTask] {
	return func(ctx context.Context, task DownloadImageTask) error {
		if manager == nil {
			return fmt.Errorf("image manager not configured")
		}

		card, err := db.GetCardByID(task.CardID)
		if err != nil {
			return fmt.Errorf("load card %s: %w", task.CardID, err)
		}

		outcome := manager.Download(ctx, card)
		switch outcome {
		case images.OutcomeSucceeded:
			if err := db.SaveCard(card); err != nil {
				return fmt.Errorf("persist image path for card %s: %w", task.CardID, err)
			}
			log.Printf("[TASK] Downloaded artwork for %s (%s)", card.Name, card.SetCode)
		case images.OutcomeFailed:
			return fmt.Errorf("download artwork for card %s (%s)", card.Name, card.SetCode)
		default:
			log.Printf("[TASK] Artwork for %s (%s) %s", card.Name, card.SetCode, outcome)
		}
		return nil
	}
}

// NewDownloadImageQueue creates a backlite queue for artwork downloads.
func NewDownloadImageQueue(db *database.Database, manager *images.Manager) backlite.Queue {
	return backlite.NewQueue(DownloadImageProcessor(db, manager))
}
