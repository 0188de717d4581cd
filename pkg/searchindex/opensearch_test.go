package searchindex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpensearchTestBackend(t *testing.T, handler func(body map[string]interface{}, w http.ResponseWriter)) *opensearchBackend {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &body))
		}
		handler(body, w)
	}))
	t.Cleanup(srv.Close)
	return &opensearchBackend{
		factory: &opensearchFactory{client: &http.Client{Timeout: 5 * time.Second}, host: srv.URL},
		index:   "docs",
	}
}

func mustList(v interface{}) []interface{} {
	l, _ := v.([]interface{})
	return l
}

func TestOpensearchSearchIncludeContentAddsNestedPagesQuery(t *testing.T) {
	var gotBody map[string]interface{}
	b := newOpensearchTestBackend(t, func(body map[string]interface{}, w http.ResponseWriter) {
		gotBody = body
		json.NewEncoder(w).Encode(opensearchSearchResponse{})
	})

	_, err := b.Search(context.Background(), "scope-a", SearchRequest{Query: "invoice", IncludeContent: true})
	require.NoError(t, err)

	must := mustList(gotBody["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"])
	require.NotEmpty(t, must)
	found := false
	for _, m := range must {
		clause, ok := m.(map[string]interface{})["bool"]
		if !ok {
			continue
		}
		should := mustList(clause.(map[string]interface{})["should"])
		for _, s := range should {
			if _, ok := s.(map[string]interface{})["nested"]; ok {
				found = true
			}
		}
	}
	assert.True(t, found, "content-scoped search must query the nested pages field")
}

func TestOpensearchSearchNameOnlyOmitsNestedPagesQuery(t *testing.T) {
	var gotBody map[string]interface{}
	b := newOpensearchTestBackend(t, func(body map[string]interface{}, w http.ResponseWriter) {
		gotBody = body
		json.NewEncoder(w).Encode(opensearchSearchResponse{})
	})

	_, err := b.Search(context.Background(), "scope-a", SearchRequest{Query: "invoice", IncludeName: true})
	require.NoError(t, err)

	must := mustList(gotBody["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"])
	for _, m := range must {
		clause, ok := m.(map[string]interface{})["bool"]
		if !ok {
			continue
		}
		should := mustList(clause.(map[string]interface{})["should"])
		for _, s := range should {
			_, isNested := s.(map[string]interface{})["nested"]
			assert.False(t, isNested, "name-only search must not touch the nested pages field")
		}
	}
}

func TestOpensearchSearchFiltersByCreatedByAndCreatedAt(t *testing.T) {
	var gotBody map[string]interface{}
	b := newOpensearchTestBackend(t, func(body map[string]interface{}, w http.ResponseWriter) {
		gotBody = body
		json.NewEncoder(w).Encode(opensearchSearchResponse{})
	})

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	author := "alice"
	_, err := b.Search(context.Background(), "scope-a", SearchRequest{
		CreatedBy: &author,
		CreatedAt: &CreatedAtRange{Start: &start},
	})
	require.NoError(t, err)

	must := mustList(gotBody["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"])
	var sawCreatedBy, sawCreatedAtRange bool
	for _, m := range must {
		clause := m.(map[string]interface{})
		if term, ok := clause["term"].(map[string]interface{}); ok {
			if term["created_by"] == "alice" {
				sawCreatedBy = true
			}
		}
		if rng, ok := clause["range"].(map[string]interface{}); ok {
			if createdAt, ok := rng["created_at"].(map[string]interface{}); ok {
				if _, ok := createdAt["gte"]; ok {
					sawCreatedAtRange = true
				}
			}
		}
	}
	assert.True(t, sawCreatedBy)
	assert.True(t, sawCreatedAtRange)
}

func TestOpensearchSearchFolderIDsUsesTermsFilter(t *testing.T) {
	var gotBody map[string]interface{}
	b := newOpensearchTestBackend(t, func(body map[string]interface{}, w http.ResponseWriter) {
		gotBody = body
		json.NewEncoder(w).Encode(opensearchSearchResponse{})
	})

	a, other := uuid.New(), uuid.New()
	_, err := b.Search(context.Background(), "scope-a", SearchRequest{FolderIDs: []uuid.UUID{a, other}})
	require.NoError(t, err)

	must := mustList(gotBody["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"])
	found := false
	for _, m := range must {
		clause := m.(map[string]interface{})
		if terms, ok := clause["terms"].(map[string]interface{}); ok {
			if ids, ok := terms["folder_id"].([]interface{}); ok {
				if len(ids) == 2 && ids[0] == a.String() && ids[1] == other.String() {
					found = true
				}
			}
		}
	}
	assert.True(t, found)
}

func opensearchFixture(t *testing.T, raw string) opensearchSearchResponse {
	t.Helper()
	var resp opensearchSearchResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	return resp
}

func TestOpensearchToResultsDistinguishesNameAndContentMatches(t *testing.T) {
	itemID := uuid.New()
	resp := opensearchFixture(t, `{
		"hits": {
			"total": {"value": 1},
			"hits": [{
				"_score": 1.5,
				"_source": {"item_type": "File", "item_id": "`+itemID.String()+`", "document_box": "scope-a"},
				"highlight": {"name": ["<em>invoice</em>"]},
				"inner_hits": {
					"pages": {
						"hits": {
							"hits": [{
								"_source": {"page": 3},
								"highlight": {"pages.content": ["...matched text..."]}
							}]
						}
					}
				}
			}]
		}
	}`)

	results := resp.toResults(SearchRequest{})
	require.Len(t, results.Hits, 1)
	hit := results.Hits[0]
	assert.True(t, hit.NameMatch)
	assert.True(t, hit.ContentMatch, "a nested page inner_hit must also mark ContentMatch")
	require.Len(t, hit.PageMatches, 1)
	assert.Equal(t, uint64(3), hit.PageMatches[0].Page)
	assert.Equal(t, []string{"...matched text..."}, hit.PageMatches[0].Matches)
}

func TestOpensearchToResultsPaginatesPageMatches(t *testing.T) {
	itemID := uuid.New()
	resp := opensearchFixture(t, `{
		"hits": {
			"total": {"value": 1},
			"hits": [{
				"_source": {"item_type": "File", "item_id": "`+itemID.String()+`", "document_box": "scope-a"},
				"inner_hits": {
					"pages": {
						"hits": {
							"hits": [
								{"_source": {"page": 0}, "highlight": {"pages.content": ["p0"]}},
								{"_source": {"page": 1}, "highlight": {"pages.content": ["p1"]}},
								{"_source": {"page": 2}, "highlight": {"pages.content": ["p2"]}}
							]
						}
					}
				}
			}]
		}
	}`)

	results := resp.toResults(SearchRequest{MaxPages: 1, PagesOffset: 1})
	require.Len(t, results.Hits, 1)
	require.Len(t, results.Hits[0].PageMatches, 1)
	assert.Equal(t, uint64(1), results.Hits[0].PageMatches[0].Page)
}
