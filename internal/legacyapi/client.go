// Package legacyapi talks to the legacy bulk catalog API. Unlike the
// search API it has no cursor pagination: one request returns a whole
// set worth of cards.
package legacyapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pcagrad/cardvault/internal/scryfall"
)

// SetRecord is a set as reported by the bulk catalog.
type SetRecord struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	ReleaseDate string `json:"releaseDate"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithPageSize(pageSize int) Option {
	return func(c *Client) { c.pageSize = pageSize }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:  "https://api.magicthegathering.io/v1",
		pageSize: 500,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sets lists every set known to the bulk catalog.
func (c *Client) Sets(ctx context.Context) ([]SetRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sets", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var body struct {
		Sets []SetRecord `json:"sets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode sets: %w", err)
	}
	return body.Sets, nil
}

// CardsForSet fetches a set's cards in one bulk request. Records that
// fail to parse are skipped and logged.
func (c *Client) CardsForSet(ctx context.Context, setCode string) ([]scryfall.CardRecord, error) {
	reqURL := fmt.Sprintf("%s/cards?set=%s&pageSize=%d",
		c.baseURL, url.QueryEscape(strings.ToUpper(setCode)), c.pageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch cards: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var body struct {
		Cards []json.RawMessage `json:"cards"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode cards: %w", err)
	}

	var cards []scryfall.CardRecord
	for _, raw := range body.Cards {
		card, err := parseBulkCard(raw)
		if err != nil {
			log.Printf("WARNING: skipping unparseable bulk card for %s: %v", setCode, err)
			continue
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func parseBulkCard(raw json.RawMessage) (scryfall.CardRecord, error) {
	var doc struct {
		ID         string          `json:"id"`
		Name       string          `json:"name"`
		ManaCost   string          `json:"manaCost"`
		Cmc        float64         `json:"cmc"`
		Type       string          `json:"type"`
		Supertypes []string        `json:"supertypes"`
		Types      []string        `json:"types"`
		Subtypes   []string        `json:"subtypes"`
		Rarity     string          `json:"rarity"`
		Set        string          `json:"set"`
		SetName    string          `json:"setName"`
		Text       string          `json:"text"`
		Artist     string          `json:"artist"`
		Number     string          `json:"number"`
		Power      string          `json:"power"`
		Toughness  string          `json:"toughness"`
		Layout     string          `json:"layout"`
		ImageURL   string          `json:"imageUrl"`
		Multiverse json.RawMessage `json:"multiverseid"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return scryfall.CardRecord{}, err
	}
	if doc.Name == "" {
		return scryfall.CardRecord{}, fmt.Errorf("card without name")
	}

	layout := doc.Layout
	if layout == "" {
		layout = "normal"
	}

	// The bulk catalog keys cards by multiverse id when the modern id
	// is absent.
	externalID := doc.ID
	if externalID == "" && len(doc.Multiverse) > 0 {
		if id, err := strconv.Atoi(strings.Trim(string(doc.Multiverse), `"`)); err == nil && id > 0 {
			externalID = strconv.Itoa(id)
		}
	}

	return scryfall.CardRecord{
		ExternalID: externalID,
		Name:       doc.Name,
		ManaCost:   doc.ManaCost,
		Cmc:        int(doc.Cmc),
		TypeLine:   doc.Type,
		Supertypes: doc.Supertypes,
		Types:      doc.Types,
		Subtypes:   doc.Subtypes,
		Rarity:     doc.Rarity,
		SetCode:    strings.ToUpper(doc.Set),
		SetName:    doc.SetName,
		Text:       doc.Text,
		Artist:     doc.Artist,
		Number:     doc.Number,
		Power:      doc.Power,
		Toughness:  doc.Toughness,
		Layout:     layout,
		ImageURL:   doc.ImageURL,
	}, nil
}
