package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"praid/internal/types"
	"time"
)

type SearchEngine struct {
	service
}

func NewSearchEngine(baseURL string, timeout time.Duration) *SearchEngine {
	return &SearchEngine{service: newService("searchengine", baseURL, timeout)}
}

// Search runs a hybrid keyword and vector search. Hits that fit neither result shape
// are logged and left out.
func (c *SearchEngine) Search(ctx context.Context, query string, n int) ([]types.SearchResult, error) {
	log := c.log.TraceFromContext(ctx).Function("Search")

	var raw []json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/", types.SearchRequest{Query: query, N: n}, &raw); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]types.SearchResult, 0, len(raw))
	for i, item := range raw {
		result, err := types.ParseSearchResult(item)
		if err != nil {
			log.Warn("Skipping unrecognised search result", "index", i, "error", err)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// Delete removes a document or image and everything derived from it.
func (c *SearchEngine) Delete(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodDelete, "/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("delete %s failed: %w", id, err)
	}
	return out, nil
}
