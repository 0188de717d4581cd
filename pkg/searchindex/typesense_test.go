package searchindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTypesenseTestBackend(t *testing.T, handler http.HandlerFunc) *typesenseBackend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &typesenseBackend{
		factory:    &typesenseFactory{client: &http.Client{Timeout: 5 * time.Second}, host: srv.URL, apiKey: "test"},
		collection: "docs",
	}
}

func TestTypesenseSearchQueryByRespectsIncludeFlags(t *testing.T) {
	var gotQueryBy string
	b := newTypesenseTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotQueryBy = r.URL.Query().Get("query_by")
		json.NewEncoder(w).Encode(typesenseSearchResponse{})
	})

	_, err := b.Search(context.Background(), "scope-a", SearchRequest{Query: "invoice", IncludeName: true})
	require.NoError(t, err)
	assert.Equal(t, "name", gotQueryBy)

	_, err = b.Search(context.Background(), "scope-a", SearchRequest{Query: "invoice", IncludeContent: true})
	require.NoError(t, err)
	assert.Equal(t, "content,pages.content", gotQueryBy)

	_, err = b.Search(context.Background(), "scope-a", SearchRequest{Query: "invoice"})
	require.NoError(t, err)
	assert.Equal(t, "name,content,pages.content", gotQueryBy)
}

func TestTypesenseSearchFiltersByCreatedByAndCreatedAt(t *testing.T) {
	var gotFilter string
	b := newTypesenseTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter_by")
		json.NewEncoder(w).Encode(typesenseSearchResponse{})
	})

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	author := "alice"

	_, err := b.Search(context.Background(), "scope-a", SearchRequest{
		CreatedBy: &author,
		CreatedAt: &CreatedAtRange{Start: &start, End: &end},
	})
	require.NoError(t, err)
	assert.Contains(t, gotFilter, "document_box:=scope-a")
	assert.Contains(t, gotFilter, "created_by:=alice")
	assert.Contains(t, gotFilter, "created_at:>="+strconv.FormatInt(start.Unix(), 10))
	assert.Contains(t, gotFilter, "created_at:<="+strconv.FormatInt(end.Unix(), 10))
}

func TestTypesenseSearchFoldersScopedToDescendants(t *testing.T) {
	var gotFilter string
	b := newTypesenseTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter_by")
		json.NewEncoder(w).Encode(typesenseSearchResponse{})
	})

	a, other := uuid.New(), uuid.New()
	_, err := b.Search(context.Background(), "scope-a", SearchRequest{FolderIDs: []uuid.UUID{a, other}})
	require.NoError(t, err)
	assert.Contains(t, gotFilter, "folder_id:=["+a.String()+","+other.String()+"]")
}

// typesenseFixture builds a typesenseSearchResponse from a JSON literal
// rather than nested anonymous struct values, which the response type is
// too deeply nested to construct by hand cleanly.
func typesenseFixture(t *testing.T, raw string) typesenseSearchResponse {
	t.Helper()
	var resp typesenseSearchResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	return resp
}

func TestTypesenseToResultsDistinguishesNameAndContentMatches(t *testing.T) {
	itemID := uuid.New()
	resp := typesenseFixture(t, `{
		"found": 1,
		"hits": [{
			"document": {
				"item_type": "File",
				"item_id": "`+itemID.String()+`",
				"document_box": "scope-a",
				"pages": [{"page": 0}, {"page": 1}, {"page": 2}]
			},
			"highlights": [{"field": "name"}],
			"highlight": {
				"pages": [
					{"content": {}},
					{"content": {"snippet": "found here"}}
				]
			}
		}]
	}`)

	results := resp.toResults(SearchRequest{})
	require.Len(t, results.Hits, 1)
	hit := results.Hits[0]
	assert.True(t, hit.NameMatch)
	assert.True(t, hit.ContentMatch, "a page-level highlight must also mark ContentMatch")
	require.Len(t, hit.PageMatches, 1)
	assert.Equal(t, uint64(1), hit.PageMatches[0].Page)
	assert.Equal(t, []string{"found here"}, hit.PageMatches[0].Matches)
}

func TestTypesenseToResultsContentOnlyMatchHasNoNameMatch(t *testing.T) {
	itemID := uuid.New()
	resp := typesenseFixture(t, `{
		"found": 1,
		"hits": [{
			"document": {
				"item_type": "File",
				"item_id": "`+itemID.String()+`",
				"document_box": "scope-a"
			},
			"highlights": [{"field": "content"}]
		}]
	}`)

	results := resp.toResults(SearchRequest{})
	require.Len(t, results.Hits, 1)
	assert.False(t, results.Hits[0].NameMatch)
	assert.True(t, results.Hits[0].ContentMatch)
}

func TestTypesenseToResultsPaginatesPageMatches(t *testing.T) {
	itemID := uuid.New()
	resp := typesenseFixture(t, `{
		"found": 1,
		"hits": [{
			"document": {
				"item_type": "File",
				"item_id": "`+itemID.String()+`",
				"document_box": "scope-a"
			},
			"highlight": {
				"pages": [
					{"content": {"snippet": "p0"}},
					{"content": {"snippet": "p1"}},
					{"content": {"snippet": "p2"}}
				]
			}
		}]
	}`)

	results := resp.toResults(SearchRequest{MaxPages: 1, PagesOffset: 1})
	require.Len(t, results.Hits, 1)
	require.Len(t, results.Hits[0].PageMatches, 1)
	assert.Equal(t, []string{"p1"}, results.Hits[0].PageMatches[0].Matches)
}
