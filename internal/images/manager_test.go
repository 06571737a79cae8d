package images

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcagrad/cardvault/internal/entities"
)

func testManager(t *testing.T, serverEnabled bool, maxDownloads int) *Manager {
	t.Helper()
	manager, err := NewManager(Options{
		StoragePath:  t.TempDir(),
		Enabled:      serverEnabled,
		MaxDownloads: maxDownloads,
		Timeout:      5 * time.Second,
	})
	require.NoError(t, err)
	return manager
}

func imageServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDownload(t *testing.T) {
	server := imageServer(t, "jpeg-bytes")
	manager := testManager(t, true, 5)

	card := &entities.Card{
		SetCode:  "FIN",
		Number:   "42",
		Name:     "Moogle Guide",
		ImageURL: server.URL + "/moogle.jpg",
	}

	outcome := manager.Download(context.Background(), card)

	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.True(t, card.ImageDownloaded)
	require.NotEmpty(t, card.LocalImagePath)
	assert.Equal(t, "FIN_42_Moogle_Guide.jpg", filepath.Base(card.LocalImagePath))

	data, err := os.ReadFile(card.LocalImagePath)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestDownload_Skips(t *testing.T) {
	server := imageServer(t, "jpeg-bytes")

	t.Run("disabled manager", func(t *testing.T) {
		manager := testManager(t, false, 5)
		card := &entities.Card{Name: "X", ImageURL: server.URL}
		assert.Equal(t, OutcomeSkippedDisabled, manager.Download(context.Background(), card))
		assert.False(t, card.ImageDownloaded)
	})

	t.Run("card without url", func(t *testing.T) {
		manager := testManager(t, true, 5)
		card := &entities.Card{Name: "X"}
		assert.Equal(t, OutcomeSkippedNoURL, manager.Download(context.Background(), card))
	})

	t.Run("already downloaded", func(t *testing.T) {
		manager := testManager(t, true, 5)
		card := &entities.Card{SetCode: "FIN", Number: "1", Name: "X", ImageURL: server.URL}
		require.Equal(t, OutcomeSucceeded, manager.Download(context.Background(), card))
		assert.Equal(t, OutcomeSkippedAlreadyPresent, manager.Download(context.Background(), card))
	})
}

func TestDownload_TraversalNumberStaysInStorageDir(t *testing.T) {
	server := imageServer(t, "jpeg-bytes")
	manager := testManager(t, true, 5)

	card := &entities.Card{
		SetCode:  "FIN",
		Number:   "../../../escaped",
		Name:     "Cloud",
		ImageURL: server.URL,
	}

	outcome := manager.Download(context.Background(), card)

	require.Equal(t, OutcomeSucceeded, outcome)
	assert.Equal(t, manager.StorageDir(), filepath.Dir(card.LocalImagePath))
	assert.Equal(t, "FIN_escaped_Cloud.jpg", filepath.Base(card.LocalImagePath))

	// Nothing landed above the storage directory.
	outside := filepath.Join(filepath.Dir(manager.StorageDir()), "escaped_Cloud.jpg")
	_, err := os.Stat(outside)
	assert.True(t, os.IsNotExist(err))
}

func TestDownload_EmptyPayloadFails(t *testing.T) {
	server := imageServer(t, "")
	manager := testManager(t, true, 5)

	card := &entities.Card{SetCode: "FIN", Number: "1", Name: "Empty", ImageURL: server.URL}
	outcome := manager.Download(context.Background(), card)

	assert.Equal(t, OutcomeFailed, outcome)
	assert.False(t, card.ImageDownloaded)

	// No partial file left behind.
	count, _, err := manager.Stats()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDownload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	manager := testManager(t, true, 5)

	card := &entities.Card{SetCode: "FIN", Number: "1", Name: "Missing", ImageURL: server.URL}
	assert.Equal(t, OutcomeFailed, manager.Download(context.Background(), card))
}

func TestDownloadForSet_BoundedConcurrency(t *testing.T) {
	var inflight, peak int64
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt64(&inflight, 1)
		mu.Lock()
		if current > peak {
			peak = current
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inflight, -1)
		fmt.Fprint(w, "jpeg-bytes")
	}))
	defer server.Close()

	manager := testManager(t, true, 2)

	var cards []*entities.Card
	for i := 0; i < 8; i++ {
		cards = append(cards, &entities.Card{
			SetCode:  "FIN",
			Number:   fmt.Sprintf("%d", i+1),
			Name:     fmt.Sprintf("Card %d", i+1),
			ImageURL: server.URL,
		})
	}

	succeeded := manager.DownloadForSet(context.Background(), cards)

	assert.Equal(t, 8, succeeded)
	mu.Lock()
	assert.LessOrEqual(t, peak, int64(2), "permit pool exceeded")
	mu.Unlock()
}

func TestDeleteAndExists(t *testing.T) {
	server := imageServer(t, "jpeg-bytes")
	manager := testManager(t, true, 5)

	card := &entities.Card{SetCode: "FIN", Number: "7", Name: "Chocobo", ImageURL: server.URL}
	require.Equal(t, OutcomeSucceeded, manager.Download(context.Background(), card))
	assert.True(t, manager.Exists(card))

	require.NoError(t, manager.Delete(card))
	assert.False(t, manager.Exists(card))
	assert.False(t, card.ImageDownloaded)
	assert.Empty(t, card.LocalImagePath)

	// Deleting again is a no-op.
	assert.NoError(t, manager.Delete(card))
}

func TestFilename(t *testing.T) {
	manager := testManager(t, true, 1)

	t.Run("sanitizes punctuation", func(t *testing.T) {
		card := &entities.Card{SetCode: "fin", Number: "3", Name: "Cloud, Midgar Mercenary"}
		assert.Equal(t, "FIN_3_Cloud_Midgar_Mercenary.jpg", manager.filename(card))
	})

	t.Run("truncates very long names", func(t *testing.T) {
		card := &entities.Card{SetCode: "FIN", Number: "4", Name: strings.Repeat("a", 300)}
		name := manager.filename(card)
		assert.LessOrEqual(t, len(name), maxFilenameBase+len(".jpg"))
		assert.True(t, utf8.ValidString(name))
	})

	t.Run("sanitizes the collector number", func(t *testing.T) {
		card := &entities.Card{SetCode: "FIN", Number: "../..\\5a", Name: "Moogle"}
		name := manager.filename(card)
		assert.Equal(t, "FIN_5a_Moogle.jpg", name)
		assert.NotContains(t, name, string(filepath.Separator))
	})

	t.Run("star number falls back to the random prefix", func(t *testing.T) {
		card := &entities.Card{SetCode: "FIN", Number: "★", Name: "Moogle"}
		name := manager.filename(card)
		assert.True(t, strings.HasSuffix(name, "_Moogle.jpg"))
		assert.True(t, utf8.ValidString(name))
	})

	t.Run("random prefix when fields are missing", func(t *testing.T) {
		card := &entities.Card{Name: "Orphan"}
		name := manager.filename(card)
		assert.True(t, strings.HasSuffix(name, "_Orphan.jpg"))
		assert.Len(t, filepath.Base(name), 8+len("_Orphan.jpg"))
	})
}

func TestStats(t *testing.T) {
	server := imageServer(t, "jpeg-bytes")
	manager := testManager(t, true, 5)

	for i := 0; i < 3; i++ {
		card := &entities.Card{
			SetCode:  "FIN",
			Number:   fmt.Sprintf("%d", i+1),
			Name:     fmt.Sprintf("Card %d", i+1),
			ImageURL: server.URL,
		}
		require.Equal(t, OutcomeSucceeded, manager.Download(context.Background(), card))
	}

	count, totalBytes, err := manager.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, int64(3*len("jpeg-bytes")), totalBytes)
}
