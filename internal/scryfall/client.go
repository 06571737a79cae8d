package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// CardRecord is a single card as reported by the remote search API,
// normalized into the shape the reconciler consumes.
type CardRecord struct {
	ExternalID string   `json:"external_id,omitempty"`
	Name       string   `json:"name"`
	ManaCost   string   `json:"mana_cost,omitempty"`
	Cmc        int      `json:"cmc"`
	TypeLine   string   `json:"type_line,omitempty"`
	Supertypes []string `json:"supertypes,omitempty"`
	Types      []string `json:"types,omitempty"`
	Subtypes   []string `json:"subtypes,omitempty"`
	Rarity     string   `json:"rarity,omitempty"`
	SetCode    string   `json:"set_code"`
	SetName    string   `json:"set_name,omitempty"`
	Text       string   `json:"text,omitempty"`
	Artist     string   `json:"artist,omitempty"`
	Number     string   `json:"number,omitempty"`
	Power      string   `json:"power,omitempty"`
	Toughness  string   `json:"toughness,omitempty"`
	Layout     string   `json:"layout,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
}

// SetInfo describes a set as reported by the remote metadata endpoint.
type SetInfo struct {
	Exists        bool
	Name          string
	ExpectedCards int
	ReleaseDate   string
}

// Client fetches cards and set metadata from the Scryfall-style search
// API, following cursor pagination page by page.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rateLimiter
	maxPages    int
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	since := time.Since(r.lastCall)
	if since < r.interval {
		time.Sleep(r.interval - since)
	}
	r.lastCall = time.Now()
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the remote API base URL (used by tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithPageDelay overrides the inter-page rate-limit delay.
func WithPageDelay(delay time.Duration) Option {
	return func(c *Client) { c.rateLimiter = newRateLimiter(delay) }
}

// WithMaxPages overrides the pagination safety cap.
func WithMaxPages(maxPages int) Option {
	return func(c *Client) { c.maxPages = maxPages }
}

// NewClient creates a search API client with rate limiting.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     "https://api.scryfall.com",
		rateLimiter: newRateLimiter(150 * time.Millisecond),
		maxPages:    20,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchSetCards retrieves every card of a set, following pagination
// until the API reports no more pages or the safety cap is reached.
// Cards that fail to parse are skipped; a transient failure mid-run
// terminates pagination and returns what was collected so far.
func (c *Client) FetchSetCards(ctx context.Context, setCode string) ([]CardRecord, error) {
	return c.FetchCardsByQuery(ctx, "set:"+strings.ToLower(setCode))
}

// FetchCardsByQuery runs one search query through full pagination.
func (c *Client) FetchCardsByQuery(ctx context.Context, query string) ([]CardRecord, error) {
	var all []CardRecord

	for page := 1; ; page++ {
		if page > c.maxPages {
			log.Printf("WARNING: pagination cap (%d pages) reached for query %q, returning %d cards", c.maxPages, query, len(all))
			return all, nil
		}

		c.rateLimiter.wait()

		result, err := c.fetchPage(ctx, query, page)
		if err != nil {
			if len(all) > 0 {
				// Partial results are a valid outcome; callers decide
				// whether to retry later.
				log.Printf("WARNING: page %d failed for query %q, keeping %d cards: %v", page, query, len(all), err)
				return all, nil
			}
			return nil, err
		}

		if result.apiError != nil {
			// A not_found error after collecting cards is the API's way
			// of signalling the end of pagination.
			if result.apiError.Code == "not_found" && len(all) > 0 {
				return all, nil
			}
			if len(all) > 0 {
				log.Printf("WARNING: API error on page %d for query %q: %s", page, query, result.apiError.Details)
				return all, nil
			}
			return nil, fmt.Errorf("search %q: %s", query, result.apiError.Details)
		}

		if len(result.cards) == 0 {
			return all, nil
		}
		all = append(all, result.cards...)

		if !result.hasMore {
			return all, nil
		}
	}
}

// FetchSetCardsWithFallback tries the primary set query first and, when
// it comes back short of expectedCards, alternate query phrasings known
// to work around catalog labelling inconsistencies. The largest result
// wins; the first query reaching expectedCards short-circuits.
func (c *Client) FetchSetCardsWithFallback(ctx context.Context, setCode string, expectedCards int) ([]CardRecord, error) {
	code := strings.ToLower(setCode)
	queries := []string{
		"set:" + code,
		"e:" + code,
		"set:" + code + " unique:prints",
		"(set:" + code + " OR e:" + code + ")",
		"set:" + code + " include:extras",
	}

	var best []CardRecord
	var bestQuery string

	for _, query := range queries {
		cards, err := c.FetchCardsByQuery(ctx, query)
		if err != nil {
			log.Printf("WARNING: query %q failed: %v", query, err)
			continue
		}
		if len(cards) > len(best) {
			best = cards
			bestQuery = query
		}
		if expectedCards > 0 && len(best) >= expectedCards {
			break
		}
	}

	if len(best) == 0 {
		return nil, fmt.Errorf("no cards found for set %s with any query", setCode)
	}
	log.Printf("Set %s: best query %q returned %d cards", setCode, bestQuery, len(best))
	return best, nil
}

// GetSetInfo checks whether a set exists remotely and reports its name,
// expected card count and release date.
func (c *Client) GetSetInfo(ctx context.Context, setCode string) (*SetInfo, error) {
	c.rateLimiter.wait()

	reqURL := fmt.Sprintf("%s/sets/%s", c.baseURL, strings.ToLower(setCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch set info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &SetInfo{Exists: false, Name: setCode}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var body struct {
		Name       string `json:"name"`
		CardCount  int    `json:"card_count"`
		ReleasedAt string `json:"released_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode set info: %w", err)
	}

	name := body.Name
	if name == "" {
		name = setCode
	}
	return &SetInfo{
		Exists:        true,
		Name:          name,
		ExpectedCards: body.CardCount,
		ReleaseDate:   body.ReleasedAt,
	}, nil
}

const userAgent = "cardvault/1.0 (https://github.com/pcagrad/cardvault)"

type pageResult struct {
	cards    []CardRecord
	hasMore  bool
	apiError *apiError
}

type apiError struct {
	Code    string
	Details string
}

func (c *Client) fetchPage(ctx context.Context, query string, page int) (*pageResult, error) {
	reqURL := fmt.Sprintf("%s/cards/search?q=%s&format=json&order=name&page=%d",
		c.baseURL, url.QueryEscape(query), page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	defer resp.Body.Close()

	var body searchPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode page %d: %w", page, err)
	}

	if body.Object == "error" {
		return &pageResult{apiError: &apiError{Code: body.Code, Details: body.Details}}, nil
	}

	result := &pageResult{hasMore: body.HasMore}
	for _, raw := range body.Data {
		card, err := parseCard(raw)
		if err != nil {
			log.Printf("WARNING: skipping unparseable card on page %d: %v", page, err)
			continue
		}
		result.cards = append(result.cards, card)
	}
	return result, nil
}

// parseCard converts one raw search result into a CardRecord,
// decomposing the type line and normalizing the rarity value.
func parseCard(raw json.RawMessage) (CardRecord, error) {
	var doc cardDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return CardRecord{}, err
	}
	if doc.Name == "" {
		return CardRecord{}, fmt.Errorf("card without name")
	}

	supertypes, types, subtypes := decomposeTypeLine(doc.TypeLine)

	return CardRecord{
		ExternalID: doc.ID,
		Name:       doc.Name,
		ManaCost:   doc.ManaCost,
		Cmc:        int(doc.Cmc),
		TypeLine:   doc.TypeLine,
		Supertypes: supertypes,
		Types:      types,
		Subtypes:   subtypes,
		Rarity:     convertRarity(doc.Rarity),
		SetCode:    strings.ToUpper(doc.Set),
		SetName:    doc.SetName,
		Text:       doc.OracleText,
		Artist:     doc.Artist,
		Number:     doc.CollectorNumber,
		Power:      doc.Power,
		Toughness:  doc.Toughness,
		Layout:     layoutOrDefault(doc.Layout),
		ImageURL:   extractImageURL(&doc),
	}, nil
}

func layoutOrDefault(layout string) string {
	if layout == "" {
		return "normal"
	}
	return layout
}

// extractImageURL prefers the card-level image and falls back to the
// first face for double-faced layouts.
func extractImageURL(doc *cardDoc) string {
	if doc.ImageURIs.Normal != "" {
		return doc.ImageURIs.Normal
	}
	if len(doc.CardFaces) > 0 {
		return doc.CardFaces[0].ImageURIs.Normal
	}
	return ""
}

// convertRarity maps the search API's rarity codes onto the display
// values used by the legacy catalog.
func convertRarity(rarity string) string {
	switch rarity {
	case "mythic":
		return "Mythic Rare"
	case "rare":
		return "Rare"
	case "uncommon":
		return "Uncommon"
	case "common":
		return "Common"
	case "special", "bonus":
		return "Special"
	case "":
		return ""
	default:
		return rarity
	}
}

var supertypeKeywords = []string{"Legendary", "Basic", "Snow", "World", "Ongoing"}

// decomposeTypeLine splits a type line like
// "Legendary Creature — Human Wizard" into supertype, type and subtype
// tag sets.
func decomposeTypeLine(typeLine string) (supertypes, types, subtypes []string) {
	if typeLine == "" {
		return nil, nil, nil
	}

	parts := strings.SplitN(typeLine, " — ", 2)

	for _, word := range strings.Fields(parts[0]) {
		if isSupertype(word) {
			supertypes = append(supertypes, word)
		} else {
			types = append(types, word)
		}
	}
	if len(parts) == 2 {
		subtypes = strings.Fields(parts[1])
	}
	return supertypes, types, subtypes
}

func isSupertype(word string) bool {
	for _, keyword := range supertypeKeywords {
		if word == keyword {
			return true
		}
	}
	return false
}

// Search API response types (internal)

type searchPage struct {
	Object     string            `json:"object"`
	Code       string            `json:"code"`
	Details    string            `json:"details"`
	Data       []json.RawMessage `json:"data"`
	HasMore    bool              `json:"has_more"`
	NextPage   string            `json:"next_page"`
	TotalCards int               `json:"total_cards"`
}

type imageURIs struct {
	Normal string `json:"normal"`
}

type cardFace struct {
	ImageURIs imageURIs `json:"image_uris"`
}

type cardDoc struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	ManaCost        string     `json:"mana_cost"`
	Cmc             float64    `json:"cmc"`
	TypeLine        string     `json:"type_line"`
	Rarity          string     `json:"rarity"`
	Set             string     `json:"set"`
	SetName         string     `json:"set_name"`
	OracleText      string     `json:"oracle_text"`
	Artist          string     `json:"artist"`
	CollectorNumber string     `json:"collector_number"`
	Power           string     `json:"power"`
	Toughness       string     `json:"toughness"`
	Layout          string     `json:"layout"`
	ImageURIs       imageURIs  `json:"image_uris"`
	CardFaces       []cardFace `json:"card_faces"`
}
