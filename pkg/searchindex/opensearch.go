package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/docboxhq/docbox/pkg/httpclient"
)

// opensearchConfig is decoded from the [search.options] TOML table.
type opensearchConfig struct {
	Host     string `mapstructure:"host"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type opensearchFactory struct {
	client   *http.Client
	host     string
	username string
	password string
}

func newOpensearchFactory(opts map[string]interface{}) (*opensearchFactory, error) {
	var cfg opensearchConfig
	if err := mapstructure.Decode(opts, &cfg); err != nil {
		return nil, errors.Wrap(err, "searchindex: decode opensearch options")
	}
	if cfg.Host == "" {
		return nil, errors.New("searchindex: opensearch provider requires options.host")
	}
	return &opensearchFactory{
		client:   httpclient.New(),
		host:     strings.TrimSuffix(cfg.Host, "/"),
		username: cfg.Username,
		password: cfg.Password,
	}, nil
}

func (f *opensearchFactory) indexFor(index string) *opensearchBackend {
	return &opensearchBackend{factory: f, index: index}
}

// opensearchBackend talks to OpenSearch's index/document REST API — no
// official Go client appears in the example pack, so this reuses the
// teacher's httpclient idiom the same way typesense.go does.
type opensearchBackend struct {
	factory *opensearchFactory
	index   string
}

func (b *opensearchBackend) CreateIndex(ctx context.Context) error {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": indexProperties(),
		},
	}
	return b.do(ctx, http.MethodPut, "/"+b.index, mapping, nil)
}

func (b *opensearchBackend) DeleteIndex(ctx context.Context) error {
	err := b.do(ctx, http.MethodDelete, "/"+b.index, nil, nil)
	if err != nil && strings.Contains(err.Error(), "404") {
		return nil
	}
	return err
}

// ApplyMigration PUTs an additive mapping update (spec.md §4.3).
// OpenSearch mapping updates are idempotent: re-applying the same field
// definition against an index that already has it succeeds as a no-op.
func (b *opensearchBackend) ApplyMigration(ctx context.Context, name string) error {
	properties, ok := opensearchMigrations[name]
	if !ok {
		return errors.Errorf("searchindex: unknown opensearch migration %q", name)
	}
	body := map[string]interface{}{"properties": properties}
	return b.do(ctx, http.MethodPut, "/"+b.index+"/_mapping", body, nil)
}

// indexProperties is the base mapping every index is created with,
// including the nested "pages" field so a multi-page file's per-page
// content is indexed as separately-matchable nested documents rather than
// one flattened blob (spec.md §4.3).
func indexProperties() map[string]interface{} {
	return map[string]interface{}{
		"item_type":    map[string]string{"type": "keyword"},
		"folder_id":    map[string]string{"type": "keyword"},
		"document_box": map[string]string{"type": "keyword"},
		"item_id":      map[string]string{"type": "keyword"},
		"name":         map[string]string{"type": "text"},
		"mime":         map[string]string{"type": "keyword"},
		"content":      map[string]string{"type": "text"},
		"created_at":   map[string]string{"type": "date"},
		"created_by":   map[string]string{"type": "keyword"},
		"pages":        opensearchMigrations["pages"]["pages"],
	}
}

// opensearchMigrations is the fixed set of named schema changes this
// backend knows how to apply, keyed the same way across both search
// backends so a caller doesn't need to know which one is live.
var opensearchMigrations = map[string]map[string]interface{}{
	"pages": {
		"pages": map[string]interface{}{
			"type": "nested",
			"properties": map[string]interface{}{
				"page":    map[string]string{"type": "long"},
				"content": map[string]string{"type": "text"},
			},
		},
	},
}

func (b *opensearchBackend) AddData(ctx context.Context, doc Document) error {
	path := fmt.Sprintf("/%s/_doc/%s", b.index, doc.ItemID.String())
	return b.do(ctx, http.MethodPut, path, toOpensearchDoc(doc), nil)
}

func (b *opensearchBackend) UpdateData(ctx context.Context, itemID uuid.UUID, doc Document) error {
	path := fmt.Sprintf("/%s/_update/%s", b.index, itemID.String())
	return b.do(ctx, http.MethodPost, path, map[string]interface{}{"doc": toOpensearchDoc(doc)}, nil)
}

func (b *opensearchBackend) DeleteData(ctx context.Context, itemID uuid.UUID) error {
	path := fmt.Sprintf("/%s/_doc/%s", b.index, itemID.String())
	err := b.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil && strings.Contains(err.Error(), "404") {
		return nil
	}
	return err
}

func (b *opensearchBackend) DeleteByScope(ctx context.Context, scope string) error {
	path := fmt.Sprintf("/%s/_delete_by_query", b.index)
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"document_box": scope},
		},
	}
	return b.do(ctx, http.MethodPost, path, body, nil)
}

func (b *opensearchBackend) Search(ctx context.Context, scope string, req SearchRequest) (SearchResults, error) {
	must := []map[string]interface{}{
		{"term": map[string]interface{}{"document_box": scope}},
	}

	name, content := req.includeFields()
	if req.Query != "" {
		should := []map[string]interface{}{}
		var textFields []string
		if name {
			textFields = append(textFields, "name")
		}
		if content {
			textFields = append(textFields, "content")
		}
		if len(textFields) > 0 {
			should = append(should, map[string]interface{}{
				"multi_match": map[string]interface{}{"query": req.Query, "fields": textFields},
			})
		}
		if content {
			should = append(should, map[string]interface{}{
				"nested": map[string]interface{}{
					"path":  "pages",
					"query": map[string]interface{}{"match": map[string]interface{}{"pages.content": req.Query}},
					"inner_hits": map[string]interface{}{
						"highlight": map[string]interface{}{
							"fields": map[string]interface{}{"pages.content": map[string]interface{}{}},
						},
					},
				},
			})
		}
		must = append(must, map[string]interface{}{
			"bool": map[string]interface{}{"should": should, "minimum_should_match": 1},
		})
	}
	if req.Mime != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"mime": req.Mime}})
	}
	if req.CreatedBy != nil {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"created_by": *req.CreatedBy}})
	}
	if req.CreatedAt != nil {
		rng := map[string]interface{}{}
		if req.CreatedAt.Start != nil {
			rng["gte"] = req.CreatedAt.Start.Format(time.RFC3339)
		}
		if req.CreatedAt.End != nil {
			rng["lte"] = req.CreatedAt.End.Format(time.RFC3339)
		}
		must = append(must, map[string]interface{}{"range": map[string]interface{}{"created_at": rng}})
	}
	if req.FolderID != nil {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"folder_id": req.FolderID.String()}})
	}
	if len(req.FolderIDs) > 0 {
		ids := make([]string, len(req.FolderIDs))
		for i, id := range req.FolderIDs {
			ids[i] = id.String()
		}
		must = append(must, map[string]interface{}{"terms": map[string]interface{}{"folder_id": ids}})
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{"bool": map[string]interface{}{"must": must}},
		"from":  req.Offset,
		"size":  searchSize(req.Size),
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{"name": map[string]interface{}{}, "content": map[string]interface{}{}},
		},
	}

	var resp opensearchSearchResponse
	if err := b.do(ctx, http.MethodPost, "/"+b.index+"/_search", body, &resp); err != nil {
		return SearchResults{}, err
	}
	return resp.toResults(req), nil
}

type opensearchSearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score  float32 `json:"_score"`
			Source struct {
				ItemType    string `json:"item_type"`
				ItemID      string `json:"item_id"`
				DocumentBox string `json:"document_box"`
			} `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
			InnerHits struct {
				Pages struct {
					Hits struct {
						Hits []struct {
							Source struct {
								Page uint64 `json:"page"`
							} `json:"_source"`
							Highlight map[string][]string `json:"highlight"`
						} `json:"hits"`
					} `json:"hits"`
				} `json:"pages"`
			} `json:"inner_hits"`
		} `json:"hits"`
	} `json:"hits"`
}

// toResults flattens an opensearch response into SearchResults. NameMatch
// and ContentMatch come from whether "name"/"content" produced a top-level
// highlight; per-page matches come from the nested "pages" inner_hits, cut
// down to req's pagination (spec.md §4.3).
func (r opensearchSearchResponse) toResults(req SearchRequest) SearchResults {
	hits := make([]SearchHit, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := uuid.Parse(h.Source.ItemID)
		if err != nil {
			continue
		}
		score := h.Score

		_, nameMatch := h.Highlight["name"]
		_, contentMatch := h.Highlight["content"]

		var pageMatches []PageResult
		for _, ih := range h.InnerHits.Pages.Hits.Hits {
			snippets := ih.Highlight["pages.content"]
			if len(snippets) == 0 {
				continue
			}
			contentMatch = true
			pageMatches = append(pageMatches, PageResult{Page: ih.Source.Page, Matches: snippets})
		}

		hits = append(hits, SearchHit{
			Type:         ItemType(h.Source.ItemType),
			ItemID:       id,
			Scope:        h.Source.DocumentBox,
			TotalHits:    1,
			Score:        SearchScore{Float: &score},
			NameMatch:    nameMatch,
			ContentMatch: contentMatch,
			PageMatches:  paginatePageMatches(pageMatches, req.PagesOffset, req.MaxPages),
		})
	}
	return SearchResults{Hits: hits, TotalHits: uint64(r.Hits.Total.Value)}
}

func toOpensearchDoc(doc Document) map[string]interface{} {
	m := map[string]interface{}{
		"item_type":    string(doc.Type),
		"folder_id":    doc.FolderID.String(),
		"document_box": doc.Scope,
		"item_id":      doc.ItemID.String(),
		"name":         doc.Name,
		"created_at":   doc.CreatedAt,
	}
	if doc.Mime != nil {
		m["mime"] = *doc.Mime
	}
	if doc.Content != nil {
		m["content"] = *doc.Content
	}
	if doc.CreatedBy != nil {
		m["created_by"] = *doc.CreatedBy
	}
	if len(doc.Pages) > 0 {
		pages := make([]map[string]interface{}, len(doc.Pages))
		for i, p := range doc.Pages {
			pages[i] = map[string]interface{}{"page": p.Page, "content": p.Content}
		}
		m["pages"] = pages
	}
	return m
}

func (b *opensearchBackend) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "searchindex: encode opensearch request")
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.factory.host+path, reader)
	if err != nil {
		return errors.Wrap(err, "searchindex: build opensearch request")
	}
	req.Header.Set("Content-Type", "application/json")
	if b.factory.username != "" {
		req.SetBasicAuth(b.factory.username, b.factory.password)
	}

	resp, err := b.factory.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "searchindex: opensearch request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.Errorf("searchindex: opensearch returned %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "searchindex: decode opensearch response")
		}
	}
	return nil
}
