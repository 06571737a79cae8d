// Package sync reconciles cards fetched from remote catalogs with the
// local database.
package sync

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pcagrad/cardvault/internal/database"
	"github.com/pcagrad/cardvault/internal/entities"
	"github.com/pcagrad/cardvault/internal/scryfall"
	"github.com/pcagrad/cardvault/internal/taxonomy"
)

// ImageEnqueuer schedules background artwork downloads for saved cards.
type ImageEnqueuer interface {
	EnqueueImageDownload(cardID string) error
}

// CardFetcher is the slice of the remote catalog client the service
// needs.
type CardFetcher interface {
	FetchSetCardsWithFallback(ctx context.Context, setCode string, expectedCards int) ([]scryfall.CardRecord, error)
	GetSetInfo(ctx context.Context, setCode string) (*scryfall.SetInfo, error)
}

// BulkFetcher is an alternate card source consulted when the search API
// does not know a set at all.
type BulkFetcher interface {
	CardsForSet(ctx context.Context, setCode string) ([]scryfall.CardRecord, error)
}

// Release dates the remote catalog reports wrong or not at all, keyed
// by upper-case set code.
var knownReleaseDates = map[string]string{
	taxonomy.DistinguishedSetCode: "2025-06-13",
}

type Service struct {
	db       *database.Database
	fetcher  CardFetcher
	taxonomy *taxonomy.Adapter
	queue    ImageEnqueuer // may be nil when background downloads are disabled
	bulk     BulkFetcher   // may be nil
}

func NewService(db *database.Database, fetcher CardFetcher, adapter *taxonomy.Adapter, queue ImageEnqueuer) *Service {
	return &Service{
		db:       db,
		fetcher:  fetcher,
		taxonomy: adapter,
		queue:    queue,
	}
}

// SetBulkFallback installs an alternate card source used for sets the
// search API does not know.
func (s *Service) SetBulkFallback(bulk BulkFetcher) {
	s.bulk = bulk
}

type Result struct {
	SetCode       string `json:"set_code"`
	CardsFound    int    `json:"cards_found"`
	CardsSaved    int    `json:"cards_saved"`
	ExpectedCards int    `json:"expected_cards"`
}

type PurgeResult struct {
	SetCode      string `json:"set_code"`
	DeletedCards int64  `json:"deleted_cards"`
	CardsSaved   int    `json:"cards_saved"`
}

type Status struct {
	SetCode       string `json:"set_code"`
	Synced        bool   `json:"synced"`
	CardCount     int64  `json:"card_count"`
	ExpectedCards int    `json:"expected_cards,omitempty"`
}

// SyncSet fetches a set's cards from the remote catalog and reconciles
// them into the database. Safe to repeat: a second run with the same
// remote data changes nothing.
func (s *Service) SyncSet(ctx context.Context, setCode string) (*Result, error) {
	info, err := s.fetcher.GetSetInfo(ctx, setCode)
	if err != nil {
		return nil, fmt.Errorf("failed to look up set %s: %w", setCode, err)
	}

	expected := 0
	if info.Exists {
		expected = info.ExpectedCards
	}

	records, err := s.fetcher.FetchSetCardsWithFallback(ctx, setCode, expected)
	if (err != nil || len(records) == 0) && !info.Exists && s.bulk != nil {
		log.Printf("Set %s unknown to the search API, trying the bulk catalog", setCode)
		records, err = s.bulk.CardsForSet(ctx, setCode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cards for %s: %w", setCode, err)
	}

	saved, err := s.UpsertBatch(ctx, setCode, records, info)
	if err != nil {
		return nil, err
	}

	log.Printf("Synced set %s: %d fetched, %d saved (expected %d)", setCode, len(records), saved, expected)
	return &Result{
		SetCode:       setCode,
		CardsFound:    len(records),
		CardsSaved:    saved,
		ExpectedCards: expected,
	}, nil
}

// PurgeAndResync deletes every card in the set and syncs it from
// scratch. The purge is committed before fetching begins.
func (s *Service) PurgeAndResync(ctx context.Context, setCode string) (*PurgeResult, error) {
	deleted, err := s.db.DeleteCardsInSet(setCode)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.RecomputeCardCount(setCode); err != nil && err != gorm.ErrRecordNotFound {
		log.Printf("WARNING: failed to reset card count for %s: %v", setCode, err)
	}
	log.Printf("Purged %d cards from set %s", deleted, setCode)

	result, err := s.SyncSet(ctx, setCode)
	if err != nil {
		return nil, err
	}
	return &PurgeResult{
		SetCode:      setCode,
		DeletedCards: deleted,
		CardsSaved:   result.CardsSaved,
	}, nil
}

// SyncStatus reports whether a set has local cards. A set is synced iff
// at least one card row exists for it.
func (s *Service) SyncStatus(ctx context.Context, setCode string) (*Status, error) {
	status := &Status{SetCode: setCode}

	set, err := s.db.GetSetByCode(setCode)
	if err == gorm.ErrRecordNotFound {
		return status, nil
	}
	if err != nil {
		return nil, err
	}

	count, err := s.db.CountCardsInSet(setCode)
	if err != nil {
		return nil, err
	}
	status.SetCode = set.Code
	status.Synced = count > 0
	status.CardCount = count

	if info, err := s.fetcher.GetSetInfo(ctx, setCode); err == nil && info.Exists {
		status.ExpectedCards = info.ExpectedCards
	}
	return status, nil
}

// UpsertBatch reconciles a batch of fetched records into the set,
// creating the set row if needed. Each record is saved in isolation so
// one bad card cannot sink the batch. The set's card count is
// recomputed unconditionally at the end.
func (s *Service) UpsertBatch(ctx context.Context, setCode string, records []scryfall.CardRecord, info *scryfall.SetInfo) (int, error) {
	if err := s.ensureSet(setCode, records, info); err != nil {
		return 0, err
	}

	saved := 0
	for i := range records {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		if _, err := s.UpsertCard(&records[i]); err != nil {
			log.Printf("WARNING: failed to save card %q in %s: %v", records[i].Name, setCode, err)
			continue
		}
		saved++
	}

	if _, err := s.db.RecomputeCardCount(setCode); err != nil {
		log.Printf("WARNING: failed to recompute card count for %s: %v", setCode, err)
	}
	return saved, nil
}

// UpsertCard reconciles one fetched record. Matching is attempted by
// external ID first, then by name within the set (backfilling the
// external ID on the old row). Gameplay fields are overwritten
// wholesale; the remote catalog is the source of truth for them.
func (s *Service) UpsertCard(record *scryfall.CardRecord) (*entities.Card, error) {
	card, err := s.findExisting(record)
	if err != nil {
		return nil, err
	}

	if card == nil {
		card = &entities.Card{
			SetCode:     record.SetCode,
			Displayable: true,
			Searchable:  true,
			Certifiable: false,
		}
	}

	if record.ExternalID != "" {
		card.ExternalID = record.ExternalID
	}
	card.Name = record.Name
	card.ManaCost = record.ManaCost
	card.Cmc = record.Cmc
	card.Rarity = record.Rarity
	card.TypeLine = record.TypeLine
	card.SetTypeTags(record.Supertypes, record.Types, record.Subtypes)
	card.Text = record.Text
	card.Artist = record.Artist
	card.Number = record.Number
	card.Power = record.Power
	card.Toughness = record.Toughness
	card.Layout = record.Layout
	if record.ImageURL != "" && record.ImageURL != card.ImageURL {
		card.ImageURL = record.ImageURL
		card.ImageDownloaded = false
	}
	card.EnsureTranslation(entities.LocaleUS, card.Name)

	if err := s.db.SaveCard(card); err != nil {
		return nil, err
	}

	// Cards still waiting on artwork get re-enqueued on every resync;
	// that is the retry path for failed downloads.
	if s.queue != nil && card.ImageURL != "" && !card.ImageDownloaded {
		if err := s.queue.EnqueueImageDownload(card.ID.String()); err != nil {
			log.Printf("WARNING: failed to enqueue image download for %s: %v", card.Name, err)
		}
	}
	return card, nil
}

func (s *Service) findExisting(record *scryfall.CardRecord) (*entities.Card, error) {
	if record.ExternalID != "" {
		card, err := s.db.FindCardByExternalID(record.ExternalID, record.SetCode)
		if err == nil {
			return card, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	card, err := s.db.FindCardByNameInSet(record.Name, record.SetCode)
	if err == nil {
		return card, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return nil, nil
}

// ensureSet guarantees a set row exists before its cards land. The name
// is taken from the remote catalog when known, falling back to the
// fetched records, then to the code itself.
func (s *Service) ensureSet(setCode string, records []scryfall.CardRecord, info *scryfall.SetInfo) error {
	_, err := s.db.GetSetByCode(setCode)
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	set := &entities.Set{Code: setCode}
	if info != nil && info.Exists {
		set.Name = info.Name
		if t, err := time.Parse("2006-01-02", info.ReleaseDate); err == nil {
			set.ReleaseDate = &t
		}
	}
	if known, ok := knownReleaseDates[strings.ToUpper(setCode)]; ok {
		if t, err := time.Parse("2006-01-02", known); err == nil {
			set.ReleaseDate = &t
		}
	}
	if set.Name == "" {
		for i := range records {
			if records[i].SetName != "" {
				set.Name = records[i].SetName
				break
			}
		}
	}
	if set.Name == "" {
		set.Name = setCode
	}

	if err := s.taxonomy.AssignKind(set, taxonomy.InferKind(set.Name)); err != nil {
		log.Printf("WARNING: could not assign type for new set %s: %v", setCode, err)
	}
	s.taxonomy.PrepareForSave(set)

	if err := s.db.SaveSet(set); err != nil {
		return fmt.Errorf("failed to create set %s: %w", setCode, err)
	}
	log.Printf("Created set %s (%s)", set.Code, set.Name)
	return nil
}
