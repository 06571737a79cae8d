// Package images downloads and stores card artwork on local disk.
package images

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pcagrad/cardvault/internal/entities"
)

// Outcome classifies the result of a single download attempt.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	OutcomeSkippedDisabled
	OutcomeSkippedNoURL
	OutcomeSkippedAlreadyPresent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkippedDisabled:
		return "skipped: downloads disabled"
	case OutcomeSkippedNoURL:
		return "skipped: no image url"
	case OutcomeSkippedAlreadyPresent:
		return "skipped: already present"
	default:
		return "unknown"
	}
}

const maxFilenameBase = 100

// Manager downloads card artwork with bounded concurrency. The permit
// pool limits in-flight downloads across all callers.
type Manager struct {
	storageDir string
	httpClient *http.Client
	permits    chan struct{}
	enabled    bool
}

type Options struct {
	StoragePath  string
	Enabled      bool
	MaxDownloads int
	Timeout      time.Duration
}

func NewManager(opts Options) (*Manager, error) {
	if err := os.MkdirAll(opts.StoragePath, 0755); err != nil {
		return nil, fmt.Errorf("create image storage dir: %w", err)
	}
	if opts.MaxDownloads <= 0 {
		opts.MaxDownloads = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Manager{
		storageDir: opts.StoragePath,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		permits: make(chan struct{}, opts.MaxDownloads),
		enabled: opts.Enabled,
	}, nil
}

// Download fetches the card's artwork and stores it locally, updating
// the card's image fields on success. It blocks while waiting for a
// download permit.
func (m *Manager) Download(ctx context.Context, card *entities.Card) Outcome {
	if !m.enabled {
		return OutcomeSkippedDisabled
	}
	if card.ImageURL == "" {
		return OutcomeSkippedNoURL
	}
	if card.ImageDownloaded && card.LocalImagePath != "" {
		if _, err := os.Stat(card.LocalImagePath); err == nil {
			return OutcomeSkippedAlreadyPresent
		}
	}

	select {
	case m.permits <- struct{}{}:
	case <-ctx.Done():
		return OutcomeFailed
	}
	defer func() { <-m.permits }()

	path := filepath.Join(m.storageDir, m.filename(card))
	if err := m.fetchToFile(ctx, card.ImageURL, path); err != nil {
		log.Printf("WARNING: image download failed for card %s (%s): %v", card.Name, card.SetCode, err)
		return OutcomeFailed
	}

	card.ImageDownloaded = true
	card.LocalImagePath = path
	return OutcomeSucceeded
}

// DownloadForSet downloads artwork for every card concurrently, bounded
// by the permit pool, and reports how many succeeded.
func (m *Manager) DownloadForSet(ctx context.Context, cards []*entities.Card) int {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, card := range cards {
		wg.Add(1)
		go func(card *entities.Card) {
			defer wg.Done()
			if m.Download(ctx, card) == OutcomeSucceeded {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(card)
	}
	wg.Wait()
	return succeeded
}

// Exists reports whether the card's artwork is present on disk.
func (m *Manager) Exists(card *entities.Card) bool {
	if card.LocalImagePath == "" {
		return false
	}
	_, err := os.Stat(card.LocalImagePath)
	return err == nil
}

// Delete removes the card's stored artwork, if any.
func (m *Manager) Delete(card *entities.Card) error {
	if card.LocalImagePath == "" {
		return nil
	}
	if err := os.Remove(card.LocalImagePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	card.ImageDownloaded = false
	card.LocalImagePath = ""
	return nil
}

// Stats returns the number of stored images and their total size.
func (m *Manager) Stats() (count int, totalBytes int64, err error) {
	entries, err := os.ReadDir(m.storageDir)
	if err != nil {
		return 0, 0, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		totalBytes += info.Size()
	}
	return count, totalBytes, nil
}

// StorageDir returns the image storage directory path.
func (m *Manager) StorageDir() string {
	return m.storageDir
}

// filename builds a stable name from set code, collector number and
// card name. Cards missing those fields get a random prefix instead.
// Every component is sanitized: set code and collector number come
// from the remote catalog, so they must never carry a path separator
// into the join.
func (m *Manager) filename(card *entities.Card) string {
	safeSet := strings.ToUpper(sanitize(card.SetCode))
	safeNumber := sanitize(card.Number)
	safeName := sanitize(card.Name)
	base := fmt.Sprintf("%s_%s_%s", safeSet, safeNumber, safeName)
	if safeSet == "" || safeNumber == "" || safeName == "" {
		base = uuid.NewString()[:8] + "_" + safeName
	}
	if len(base) > maxFilenameBase {
		cut := maxFilenameBase
		for cut > 0 && !utf8.RuneStart(base[cut]) {
			cut--
		}
		base = base[:cut]
	}
	return base + ".jpg"
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// fetchToFile downloads the image to a temp file and renames it into
// place. Empty payloads count as failures.
func (m *Manager) fetchToFile(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "cardvault/1.0")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp(m.storageDir, "image_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	written, err := io.Copy(tmpFile, resp.Body)
	if err != nil {
		return err
	}
	if written == 0 {
		return fmt.Errorf("empty image payload")
	}

	tmpFile.Close()

	// Atomic rename
	return os.Rename(tmpPath, path)
}
