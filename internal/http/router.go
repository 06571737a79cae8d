package http

import (
	"github.com/gin-gonic/gin"

	"github.com/pcagrad/cardvault/internal/database"
	"github.com/pcagrad/cardvault/internal/images"
	cardsync "github.com/pcagrad/cardvault/internal/sync"
	"github.com/pcagrad/cardvault/internal/tasks"
	"github.com/pcagrad/cardvault/internal/taxonomy"
)

// RouterConfig holds every dependency the router needs. Optional
// fields may be nil; the matching routes degrade or disappear.
type RouterConfig struct {
	Database    *database.Database
	SyncService *cardsync.Service
	Taxonomy    *taxonomy.Adapter
	Images      *images.Manager
	TasksClient *tasks.Client // nil when the task queue is disabled
	Version     string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	healthController := NewHealthController(cfg.Database, cfg.Images, cfg.Version)
	router.GET("/health", healthController.Status)

	var queue SyncEnqueuer
	if cfg.TasksClient != nil {
		queue = cfg.TasksClient
	}
	setsController := NewSetsController(cfg.Database, cfg.SyncService, queue)
	imagesController := NewImagesController(cfg.Database, cfg.Images)
	adminController := NewAdminController(cfg.Database, cfg.Taxonomy)

	api := router.Group("/api")
	{
		api.GET("/sets", setsController.ListSets)
		api.GET("/sets/:code", setsController.GetSet)
		api.GET("/sets/:code/cards", setsController.ListCards)
		api.GET("/sets/:code/status", setsController.SyncStatus)
		api.POST("/sets/:code/sync", setsController.SyncSet)
		api.POST("/sets/:code/purge-resync", setsController.PurgeAndResync)
		api.POST("/sets/:code/images", imagesController.DownloadForSet)

		api.GET("/cards/:id/image", imagesController.GetImage)

		api.POST("/admin/migrate", adminController.Migrate)
		api.POST("/admin/distinguished-set", adminController.EnsureDistinguishedSet)
		api.GET("/admin/stats", adminController.Stats)

		if cfg.TasksClient != nil {
			tasksController := NewTasksController(cfg.TasksClient)
			api.GET("/tasks/:id", tasksController.Status)
		}
	}

	return router
}
