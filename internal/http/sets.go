package http

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pcagrad/cardvault/internal/database"
	cardsync "github.com/pcagrad/cardvault/internal/sync"
)

// SyncEnqueuer schedules background set syncs, when the task queue is
// enabled.
type SyncEnqueuer interface {
	EnqueueSetSync(setCode string) (string, error)
}

// SetsController handles set catalog and synchronization requests.
type SetsController struct {
	db      *database.Database
	service *cardsync.Service
	queue   SyncEnqueuer // may be nil
}

func NewSetsController(db *database.Database, service *cardsync.Service, queue SyncEnqueuer) *SetsController {
	return &SetsController{
		db:      db,
		service: service,
		queue:   queue,
	}
}

// ListSets returns every known set.
// GET /api/sets
func (sc *SetsController) ListSets(c *gin.Context) {
	sets, err := sc.db.GetAllSets()
	if err != nil {
		respondInternalError(c, err, "list sets")
		return
	}
	respondOK(c, "", sets)
}

// GetSet returns one set by code.
// GET /api/sets/:code
func (sc *SetsController) GetSet(c *gin.Context) {
	code, ok := setCodeParam(c)
	if !ok {
		return
	}
	set, err := sc.db.GetSetByCode(code)
	if err == gorm.ErrRecordNotFound {
		respondNotFound(c, "set "+code)
		return
	}
	if err != nil {
		respondInternalError(c, err, "get set")
		return
	}
	respondOK(c, "", set)
}

// ListCards returns the cards of a set.
// GET /api/sets/:code/cards
func (sc *SetsController) ListCards(c *gin.Context) {
	code, ok := setCodeParam(c)
	if !ok {
		return
	}
	cards, err := sc.db.GetCardsForSet(code)
	if err != nil {
		respondInternalError(c, err, "list cards")
		return
	}
	respondOK(c, "", cards)
}

// SyncSet fetches a set from the remote catalog and reconciles it into
// the database. With ?background=true the sync is queued instead and
// the task id returned.
// POST /api/sets/:code/sync
func (sc *SetsController) SyncSet(c *gin.Context) {
	code, ok := setCodeParam(c)
	if !ok {
		return
	}

	if c.Query("background") == "true" {
		if sc.queue == nil {
			respondBadRequest(c, "background syncs are disabled")
			return
		}
		taskID, err := sc.queue.EnqueueSetSync(code)
		if err != nil {
			respondInternalError(c, err, "enqueue sync")
			return
		}
		respondAccepted(c, "sync queued for set "+code, gin.H{"task_id": taskID})
		return
	}

	result, err := sc.service.SyncSet(c.Request.Context(), code)
	if err != nil {
		respondInternalError(c, err, "sync set")
		return
	}
	respondOK(c, "sync completed for set "+code, result)
}

// PurgeAndResync deletes all local cards of the set and syncs it from
// scratch.
// POST /api/sets/:code/purge-resync
func (sc *SetsController) PurgeAndResync(c *gin.Context) {
	code, ok := setCodeParam(c)
	if !ok {
		return
	}
	result, err := sc.service.PurgeAndResync(c.Request.Context(), code)
	if err != nil {
		respondInternalError(c, err, "purge and resync")
		return
	}
	respondOK(c, "purge and resync completed for set "+code, result)
}

// SyncStatus reports whether the set is synced and how many cards it
// holds locally.
// GET /api/sets/:code/status
func (sc *SetsController) SyncStatus(c *gin.Context) {
	code, ok := setCodeParam(c)
	if !ok {
		return
	}
	status, err := sc.service.SyncStatus(c.Request.Context(), code)
	if err != nil {
		respondInternalError(c, err, "sync status")
		return
	}
	respondOK(c, "", status)
}
