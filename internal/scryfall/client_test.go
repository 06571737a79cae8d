package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(serverURL string, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(serverURL),
		WithPageDelay(time.Millisecond),
	}
	return NewClient(append(base, opts...)...)
}

func cardJSON(id, name string) string {
	return fmt.Sprintf(`{"id":%q,"name":%q,"set":"fin","rarity":"rare","type_line":"Creature — Moogle"}`, id, name)
}

func TestFetchSetCards_SinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "set:fin", r.URL.Query().Get("q"))
		fmt.Fprintf(w, `{"object":"list","data":[%s,%s],"has_more":false}`,
			cardJSON("a1", "Cloud"), cardJSON("a2", "Moogle"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	cards, err := client.FetchSetCards(context.Background(), "FIN")

	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "a1", cards[0].ExternalID)
	assert.Equal(t, "Cloud", cards[0].Name)
	assert.Equal(t, "FIN", cards[0].SetCode)
	assert.Equal(t, "Rare", cards[0].Rarity)
}

func TestFetchSetCards_FollowsPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprintf(w, `{"object":"list","data":[%s],"has_more":true}`, cardJSON("a1", "Cloud"))
		case "2":
			fmt.Fprintf(w, `{"object":"list","data":[%s],"has_more":false}`, cardJSON("a2", "Moogle"))
		default:
			t.Errorf("unexpected page request: %s", r.URL.Query().Get("page"))
		}
	}))
	defer server.Close()

	client := testClient(server.URL)
	cards, err := client.FetchSetCards(context.Background(), "fin")

	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestFetchSetCards_TruncatesAtPageCap(t *testing.T) {
	var pagesServed int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		// Misbehaving API: always claims more pages exist.
		fmt.Fprintf(w, `{"object":"list","data":[%s],"has_more":true}`, cardJSON("x", "Loop"))
	}))
	defer server.Close()

	client := testClient(server.URL, WithMaxPages(3))
	cards, err := client.FetchSetCards(context.Background(), "fin")

	require.NoError(t, err)
	assert.Equal(t, 3, pagesServed)
	assert.Len(t, cards, 3)
}

func TestFetchSetCards_EmptyPageStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"object":"list","data":[],"has_more":true}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	cards, err := client.FetchSetCards(context.Background(), "fin")

	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestFetchSetCards_SkipsUnparseableCards(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Second record has no name and must be skipped, not abort the page.
		fmt.Fprintf(w, `{"object":"list","data":[%s,{"id":"broken"},%s],"has_more":false}`,
			cardJSON("a1", "Cloud"), cardJSON("a2", "Moogle"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	cards, err := client.FetchSetCards(context.Background(), "fin")

	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestFetchSetCards_NotFoundAfterCardsIsNormalEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprintf(w, `{"object":"list","data":[%s],"has_more":true}`, cardJSON("a1", "Cloud"))
			return
		}
		fmt.Fprint(w, `{"object":"error","code":"not_found","details":"no more pages"}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	cards, err := client.FetchSetCards(context.Background(), "fin")

	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestFetchSetCards_ErrorOnFirstPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"object":"error","code":"bad_request","details":"invalid query"}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.FetchSetCards(context.Background(), "fin")

	assert.Error(t, err)
}

func TestFetchSetCardsWithFallback_UsesAlternateQuery(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queries = append(queries, q)
		if q == "e:fin" {
			fmt.Fprintf(w, `{"object":"list","data":[%s,%s],"has_more":false}`,
				cardJSON("a1", "Cloud"), cardJSON("a2", "Moogle"))
			return
		}
		fmt.Fprint(w, `{"object":"error","code":"not_found","details":"no cards"}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	cards, err := client.FetchSetCardsWithFallback(context.Background(), "FIN", 2)

	require.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Contains(t, queries, "set:fin")
	assert.Contains(t, queries, "e:fin")
}

func TestFetchSetCardsWithFallback_AllQueriesEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"object":"error","code":"not_found","details":"no cards"}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.FetchSetCardsWithFallback(context.Background(), "FIN", 0)

	assert.Error(t, err)
}

func TestGetSetInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sets/fin", r.URL.Path)
		fmt.Fprint(w, `{"name":"Final Fantasy","card_count":586,"released_at":"2025-06-13"}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	info, err := client.GetSetInfo(context.Background(), "FIN")

	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, "Final Fantasy", info.Name)
	assert.Equal(t, 586, info.ExpectedCards)
	assert.Equal(t, "2025-06-13", info.ReleaseDate)
}

func TestGetSetInfo_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(server.URL)
	info, err := client.GetSetInfo(context.Background(), "xyz")

	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestDecomposeTypeLine(t *testing.T) {
	tests := []struct {
		typeLine   string
		supertypes []string
		types      []string
		subtypes   []string
	}{
		{"Legendary Creature — Human Wizard", []string{"Legendary"}, []string{"Creature"}, []string{"Human", "Wizard"}},
		{"Instant", nil, []string{"Instant"}, nil},
		{"Basic Snow Land — Island", []string{"Basic", "Snow"}, []string{"Land"}, []string{"Island"}},
		{"", nil, nil, nil},
	}

	for _, tt := range tests {
		supertypes, types, subtypes := decomposeTypeLine(tt.typeLine)
		assert.Equal(t, tt.supertypes, supertypes, tt.typeLine)
		assert.Equal(t, tt.types, types, tt.typeLine)
		assert.Equal(t, tt.subtypes, subtypes, tt.typeLine)
	}
}

func TestConvertRarity(t *testing.T) {
	assert.Equal(t, "Mythic Rare", convertRarity("mythic"))
	assert.Equal(t, "Special", convertRarity("bonus"))
	assert.Equal(t, "Common", convertRarity("common"))
	assert.Equal(t, "weird", convertRarity("weird"))
}

func TestParseCard_DoubleFacedImageFallback(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "df1",
		"name": "Two-Faced",
		"set": "fin",
		"layout": "transform",
		"card_faces": [{"image_uris": {"normal": "https://imgs.example/front.jpg"}}]
	}`)

	card, err := parseCard(raw)

	require.NoError(t, err)
	assert.Equal(t, "https://imgs.example/front.jpg", card.ImageURL)
	assert.Equal(t, "transform", card.Layout)
}
