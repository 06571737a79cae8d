package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Scryfall
		LegacyAPI
		Images
		SetSync
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Scryfall struct {
		BaseURL   string
		PageDelay time.Duration // pause between search pages
		MaxPages  int           // safety cap against runaway pagination
	}
	LegacyAPI struct {
		BaseURL  string
		PageSize int
	}
	Images struct {
		StoragePath     string
		DownloadEnabled bool
		MaxDownloads    int // concurrent download permit pool size
		Timeout         time.Duration
	}
	SetSync struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
		Codes    []string
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8189)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Remote catalog defaults
	v.SetDefault("scryfall_base_url", "https://api.scryfall.com")
	v.SetDefault("scryfall_page_delay", "150ms")
	v.SetDefault("scryfall_max_pages", 20)
	v.SetDefault("legacy_api_base_url", "https://api.magicthegathering.io/v1")
	v.SetDefault("legacy_api_page_size", 500)

	// Image download defaults
	v.SetDefault("images_storage_path", DefaultImagesPath)
	v.SetDefault("images_download_enabled", true)
	v.SetDefault("images_max_downloads", 5)
	v.SetDefault("images_timeout", "30s")

	// Scheduled set sync defaults
	v.SetDefault("set_sync_enabled", false)
	v.SetDefault("set_sync_schedule", "0 3 * * *") // Daily at 03:00
	v.SetDefault("set_sync_codes", []string{})

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Scryfall: Scryfall{
			BaseURL:   v.GetString("SCRYFALL_BASE_URL"),
			PageDelay: v.GetDuration("SCRYFALL_PAGE_DELAY"),
			MaxPages:  v.GetInt("SCRYFALL_MAX_PAGES"),
		},
		LegacyAPI: LegacyAPI{
			BaseURL:  v.GetString("LEGACY_API_BASE_URL"),
			PageSize: v.GetInt("LEGACY_API_PAGE_SIZE"),
		},
		Images: Images{
			StoragePath:     v.GetString("IMAGES_STORAGE_PATH"),
			DownloadEnabled: v.GetBool("IMAGES_DOWNLOAD_ENABLED"),
			MaxDownloads:    v.GetInt("IMAGES_MAX_DOWNLOADS"),
			Timeout:         v.GetDuration("IMAGES_TIMEOUT"),
		},
		SetSync: SetSync{
			Enabled:  v.GetBool("SET_SYNC_ENABLED"),
			Schedule: v.GetString("SET_SYNC_SCHEDULE"),
			Codes:    v.GetStringSlice("SET_SYNC_CODES"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}
