package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcagrad/cardvault/internal/database"
	"github.com/pcagrad/cardvault/internal/entities"
	"github.com/pcagrad/cardvault/internal/images"
	"github.com/pcagrad/cardvault/internal/scryfall"
	cardsync "github.com/pcagrad/cardvault/internal/sync"
	"github.com/pcagrad/cardvault/internal/taxonomy"
)

type fakeFetcher struct {
	info    scryfall.SetInfo
	records []scryfall.CardRecord
}

func (f *fakeFetcher) FetchSetCardsWithFallback(ctx context.Context, setCode string, expectedCards int) ([]scryfall.CardRecord, error) {
	return f.records, nil
}

func (f *fakeFetcher) GetSetInfo(ctx context.Context, setCode string) (*scryfall.SetInfo, error) {
	info := f.info
	return &info, nil
}

func setupRouter(t *testing.T, fetcher *fakeFetcher) (*gin.Engine, *database.Database) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_" + t.Name() + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	manager, err := images.NewManager(images.Options{
		StoragePath: t.TempDir(),
		Enabled:     true,
	})
	require.NoError(t, err)

	adapter := taxonomy.NewAdapter(db)
	service := cardsync.NewService(db, fetcher, adapter, nil)

	router := NewRouter(RouterConfig{
		Database:    db,
		SyncService: service,
		Taxonomy:    adapter,
		Images:      manager,
		Version:     "test",
	})
	return router, db
}

func doRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupRouter(t, &fakeFetcher{})

	w := doRequest(router, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ok", health.Checks["database"])
	assert.Equal(t, "ok", health.Checks["image_store"])
}

func TestSyncSetEndpoint(t *testing.T) {
	fetcher := &fakeFetcher{
		info: scryfall.SetInfo{Exists: true, Name: "Final Fantasy", ExpectedCards: 1},
		records: []scryfall.CardRecord{{
			ExternalID: "ext-1",
			Name:       "Cloud, Midgar Mercenary",
			SetCode:    "FIN",
			Rarity:     "Rare",
			Number:     "1",
			Layout:     "normal",
		}},
	}
	router, db := setupRouter(t, fetcher)

	w := doRequest(router, http.MethodPost, "/api/sets/FIN/sync")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)

	count, err := db.CountCardsInSet("FIN")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSyncSetEndpoint_BackgroundDisabled(t *testing.T) {
	router, _ := setupRouter(t, &fakeFetcher{})

	w := doRequest(router, http.MethodPost, "/api/sets/FIN/sync?background=true")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
}

func TestSyncStatusEndpoint(t *testing.T) {
	router, db := setupRouter(t, &fakeFetcher{})

	require.NoError(t, db.SaveSet(&entities.Set{Code: "FIN", Name: "Final Fantasy"}))
	require.NoError(t, db.SaveCard(&entities.Card{SetCode: "FIN", Name: "Cloud"}))

	w := doRequest(router, http.MethodGet, "/api/sets/FIN/status")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool            `json:"success"`
		Data    cardsync.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Synced)
	assert.Equal(t, int64(1), resp.Data.CardCount)
}

func TestPurgeAndResyncEndpoint(t *testing.T) {
	fetcher := &fakeFetcher{
		info: scryfall.SetInfo{Exists: true, Name: "Final Fantasy", ExpectedCards: 1},
		records: []scryfall.CardRecord{{
			ExternalID: "ext-9",
			Name:       "Chocobo Companion",
			SetCode:    "FIN",
			Number:     "9",
			Layout:     "normal",
		}},
	}
	router, db := setupRouter(t, fetcher)

	require.NoError(t, db.SaveCard(&entities.Card{SetCode: "FIN", Name: "Stale"}))

	w := doRequest(router, http.MethodPost, "/api/sets/FIN/purge-resync")

	assert.Equal(t, http.StatusOK, w.Code)

	cards, err := db.GetCardsForSet("FIN")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Chocobo Companion", cards[0].Name)
}

func TestGetSetEndpoint_NotFound(t *testing.T) {
	router, _ := setupRouter(t, &fakeFetcher{})

	w := doRequest(router, http.MethodGet, "/api/sets/ZZZ")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetImageEndpoint(t *testing.T) {
	router, db := setupRouter(t, &fakeFetcher{})

	t.Run("invalid id", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/cards/not-a-uuid/image")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("redirects to remote url when not downloaded", func(t *testing.T) {
		card := &entities.Card{
			SetCode:  "FIN",
			Name:     "Cloud",
			ImageURL: "https://imgs.example/cloud.jpg",
		}
		require.NoError(t, db.SaveCard(card))

		w := doRequest(router, http.MethodGet, "/api/cards/"+card.ID.String()+"/image")
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "https://imgs.example/cloud.jpg", w.Header().Get("Location"))
	})

	t.Run("404 when no image at all", func(t *testing.T) {
		card := &entities.Card{SetCode: "FIN", Name: "Imageless"}
		require.NoError(t, db.SaveCard(card))

		w := doRequest(router, http.MethodGet, "/api/cards/"+card.ID.String()+"/image")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminMigrateEndpoint(t *testing.T) {
	router, db := setupRouter(t, &fakeFetcher{})

	require.NoError(t, db.SaveSet(&entities.Set{Code: "CMD", Name: "Commander Anthology"}))

	w := doRequest(router, http.MethodPost, "/api/admin/migrate")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool            `json:"success"`
		Data    taxonomy.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(1), resp.Data.TotalSets)
	assert.Zero(t, resp.Data.SetsWithoutType)
}

func TestAdminDistinguishedSetEndpoint(t *testing.T) {
	router, db := setupRouter(t, &fakeFetcher{})

	w := doRequest(router, http.MethodPost, "/api/admin/distinguished-set")
	assert.Equal(t, http.StatusOK, w.Code)

	set, err := db.GetSetByCode("FIN")
	require.NoError(t, err)
	assert.Equal(t, "Magic: The Gathering—FINAL FANTASY", set.Name)
}

func TestAdminStatsEndpoint(t *testing.T) {
	router, db := setupRouter(t, &fakeFetcher{})

	require.NoError(t, db.SaveCard(&entities.Card{SetCode: "FIN", Name: "Cloud"}))

	w := doRequest(router, http.MethodGet, "/api/admin/stats")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data statsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Data.TotalCards)
	assert.NotNil(t, resp.Data.Report)
}
