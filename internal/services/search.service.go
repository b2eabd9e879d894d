package services

import (
	"context"
	"errors"
	"praid/internal/logger"
	"praid/internal/types"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyQuery         = errors.New("query is required")
	ErrInvalidResultCount = errors.New("result count must be positive")
	ErrEmptyID            = errors.New("id is required")
)

const similarityPlaces = 3

type SearchEngine interface {
	Search(ctx context.Context, query string, n int) ([]types.SearchResult, error)
	Delete(ctx context.Context, id string) (map[string]any, error)
}

type SearchService struct {
	engine         SearchEngine
	store          SearchContextStore
	defaultResults int
	maxResults     int
	log            logger.Logger
}

func NewSearchService(
	engine SearchEngine,
	store SearchContextStore,
	defaultResults int,
	maxResults int,
) *SearchService {
	return &SearchService{
		engine:         engine,
		store:          store,
		defaultResults: defaultResults,
		maxResults:     maxResults,
		log:            logger.New("searchService"),
	}
}

// Search queries the engine and makes the results the current search context. A zero
// count asks for the default; counts above the maximum are capped.
func (s *SearchService) Search(ctx context.Context, request types.SearchRequest) (*types.SearchContext, error) {
	log := s.log.TraceFromContext(ctx).Function("Search")

	query := strings.TrimSpace(request.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	n := request.N
	switch {
	case n < 0:
		return nil, ErrInvalidResultCount
	case n == 0:
		n = s.defaultResults
	case n > s.maxResults:
		n = s.maxResults
	}

	results, err := s.engine.Search(ctx, query, n)
	if err != nil {
		return nil, log.Err("search failed", err, "query", query, "n", n)
	}

	for i := range results {
		results[i].SimilarityText = FormatSimilarity(results[i].Similarity)
	}

	searchContext := types.SearchContext{
		Query:     query,
		Results:   results,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.Replace(ctx, searchContext); err != nil {
		return nil, log.Err("failed to store search context", err)
	}

	log.Info("Search complete", "query", query, "n", n, "results", len(results))
	return &searchContext, nil
}

// Context returns the current search context, or nil before the first search.
func (s *SearchService) Context(ctx context.Context) (*types.SearchContext, error) {
	return s.store.Latest(ctx)
}

// Delete removes an indexed document or image and drops it from the search context.
func (s *SearchService) Delete(ctx context.Context, id string) (map[string]any, error) {
	log := s.log.TraceFromContext(ctx).Function("Delete")

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyID
	}

	response, err := s.engine.Delete(ctx, id)
	if err != nil {
		return nil, log.Err("failed to delete from search engine", err, "id", id)
	}

	current, err := s.store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if current != nil {
		if err := s.store.Replace(ctx, current.Without(id)); err != nil {
			return nil, log.Err("failed to update search context", err, "id", id)
		}
	}

	return response, nil
}

func FormatSimilarity(similarity float64) string {
	return decimal.NewFromFloat(similarity).StringFixed(similarityPlaces)
}
