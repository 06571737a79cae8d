package tasks

import "time"

// Config holds the settings for the shared task dispatcher. Per-queue
// retry and timeout policy lives with each task type (DownloadImageTask,
// SyncSetTask); these knobs govern the workers and the completed-task
// table.
type Config struct {
	// Workers is the number of concurrent task workers. Two is enough to
	// keep artwork downloads and a set sync moving side by side; the
	// image manager's permit pool bounds download fan-out separately.
	// Default: 2
	Workers int

	// MaxRetries is the fallback retry count for queues that do not set
	// their own. Default: 3
	MaxRetries int

	// RetryDelay is the fallback backoff between retries. Default: 1m
	RetryDelay time.Duration

	// TaskTimeout is the fallback execution timeout. Set syncs override
	// this with a much longer one of their own. Default: 5m
	TaskTimeout time.Duration

	// ReleaseAfter is when stuck tasks are released back to the queue,
	// e.g. after a crash mid-download. Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often completed tasks are pruned. Default: 1h
	CleanupInterval time.Duration

	// RetentionDuration is how long completed tasks stay queryable via
	// the tasks status endpoint. Default: 24h
	RetentionDuration time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxRetries:        3,
		RetryDelay:        1 * time.Minute,
		TaskTimeout:       5 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   1 * time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}
