package http

import (
	"github.com/gin-gonic/gin"

	"github.com/pcagrad/cardvault/internal/database"
	"github.com/pcagrad/cardvault/internal/taxonomy"
)

// AdminController handles catalog maintenance requests.
type AdminController struct {
	db       *database.Database
	taxonomy *taxonomy.Adapter
}

func NewAdminController(db *database.Database, adapter *taxonomy.Adapter) *AdminController {
	return &AdminController{
		db:       db,
		taxonomy: adapter,
	}
}

// Migrate walks every persisted set, inferring missing types and
// seeding missing translations, then reports catalog health.
// POST /api/admin/migrate
func (ac *AdminController) Migrate(c *gin.Context) {
	report, err := ac.taxonomy.MigrateExisting()
	if err != nil {
		respondInternalError(c, err, "migrate sets")
		return
	}
	respondOK(c, "migration completed", report)
}

// EnsureDistinguishedSet creates the tracked crossover set if absent.
// POST /api/admin/distinguished-set
func (ac *AdminController) EnsureDistinguishedSet(c *gin.Context) {
	set, err := ac.taxonomy.EnsureDistinguishedSet()
	if err != nil {
		respondInternalError(c, err, "ensure distinguished set")
		return
	}
	respondOK(c, "set "+set.Code+" present", set)
}

type statsResponse struct {
	Report            *taxonomy.Report `json:"report"`
	TotalCards        int64            `json:"total_cards"`
	DownloadedImages  int64            `json:"downloaded_images"`
	PendingImages     int64            `json:"pending_images"`
	DownloadedPercent float64          `json:"downloaded_percent"`
}

// Stats reports catalog health without mutating anything.
// GET /api/admin/stats
func (ac *AdminController) Stats(c *gin.Context) {
	report, err := ac.taxonomy.BuildReport()
	if err != nil {
		respondInternalError(c, err, "build report")
		return
	}
	totalCards, err := ac.db.CountCards()
	if err != nil {
		respondInternalError(c, err, "count cards")
		return
	}
	downloaded, err := ac.db.CountDownloadedImages()
	if err != nil {
		respondInternalError(c, err, "count downloaded images")
		return
	}
	stats := statsResponse{
		Report:           report,
		TotalCards:       totalCards,
		DownloadedImages: downloaded,
		PendingImages:    totalCards - downloaded,
	}
	if totalCards > 0 {
		stats.DownloadedPercent = float64(downloaded) / float64(totalCards) * 100
	}
	respondOK(c, "", stats)
}
