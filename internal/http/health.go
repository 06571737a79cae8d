package http

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pcagrad/cardvault/internal/database"
	"github.com/pcagrad/cardvault/internal/images"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController reports whether the card database and the artwork
// store are reachable.
type HealthController struct {
	db      *database.Database
	images  *images.Manager
	version string
}

func NewHealthController(db *database.Database, imageManager *images.Manager, version string) *HealthController {
	return &HealthController{
		db:      db,
		images:  imageManager,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	// Check card database connectivity
	if h.db != nil {
		sqlDB, err := h.db.DB.DB()
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	// Check the artwork storage directory
	if h.images != nil {
		if info, err := os.Stat(h.images.StorageDir()); err != nil {
			checks["image_store"] = "error: " + err.Error()
			status = "unhealthy"
		} else if !info.IsDir() {
			checks["image_store"] = "error: not a directory"
			status = "unhealthy"
		} else {
			checks["image_store"] = "ok"
		}
	} else {
		checks["image_store"] = "not configured"
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
