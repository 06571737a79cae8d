package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pcagrad/cardvault/internal/config"
	"github.com/pcagrad/cardvault/internal/database"
	http_controllers "github.com/pcagrad/cardvault/internal/http"
	"github.com/pcagrad/cardvault/internal/images"
	"github.com/pcagrad/cardvault/internal/legacyapi"
	"github.com/pcagrad/cardvault/internal/scheduler"
	"github.com/pcagrad/cardvault/internal/scryfall"
	cardsync "github.com/pcagrad/cardvault/internal/sync"
	"github.com/pcagrad/cardvault/internal/tasks"
	"github.com/pcagrad/cardvault/internal/taxonomy"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting cardvault v%s", version)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Create image manager for local artwork storage
	imageManager, err := images.NewManager(images.Options{
		StoragePath:  cfg.Images.StoragePath,
		Enabled:      cfg.Images.DownloadEnabled,
		MaxDownloads: cfg.Images.MaxDownloads,
		Timeout:      cfg.Images.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to initialize image storage: %v", err)
	}
	log.Printf("Image storage initialized at %s", imageManager.StorageDir())

	// Remote catalog client
	scryfallClient := scryfall.NewClient(
		scryfall.WithBaseURL(cfg.Scryfall.BaseURL),
		scryfall.WithPageDelay(cfg.Scryfall.PageDelay),
		scryfall.WithMaxPages(cfg.Scryfall.MaxPages),
	)

	taxonomyAdapter := taxonomy.NewAdapter(db)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()
	}

	// The sync service enqueues artwork downloads when the queue is up.
	var imageQueue cardsync.ImageEnqueuer
	if taskClient != nil {
		imageQueue = taskClient
	}
	syncService := cardsync.NewService(db, scryfallClient, taxonomyAdapter, imageQueue)

	// Sets the search API does not know can still come from the legacy
	// bulk catalog.
	syncService.SetBulkFallback(legacyapi.NewClient(
		legacyapi.WithBaseURL(cfg.LegacyAPI.BaseURL),
		legacyapi.WithPageSize(cfg.LegacyAPI.PageSize),
	))

	if taskClient != nil {
		// Register task queues and start workers in background
		taskClient.Register(
			tasks.NewDownloadImageQueue(db, imageManager),
			tasks.NewSyncSetQueue(syncService),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// Periodic resync of configured sets
	var syncScheduler *scheduler.SetSyncScheduler
	if taskClient != nil && cfg.SetSync.Enabled {
		syncScheduler = scheduler.NewSetSyncScheduler(taskClient, cfg.SetSync)
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start set sync scheduler: %v", err)
		}
	}

	// Build router configuration with all dependencies
	routerCfg := http_controllers.RouterConfig{
		Database:    db,
		SyncService: syncService,
		Taxonomy:    taxonomyAdapter,
		Images:      imageManager,
		TasksClient: taskClient,
		Version:     version,
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		if syncScheduler != nil {
			syncScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
