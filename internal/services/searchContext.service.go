package services

import (
	"context"
	"praid/internal/constants"
	"praid/internal/database"
	"praid/internal/logger"
	"praid/internal/types"
	"sync"
)

// SearchContextStore holds the latest search for the chat service to cite. The search
// service is its only writer.
type SearchContextStore interface {
	Latest(ctx context.Context) (*types.SearchContext, error)
	Replace(ctx context.Context, searchContext types.SearchContext) error
}

// NewSearchContextStore keeps the context in valkey when a cache is configured, so
// every console instance sees the same one, and in process otherwise.
func NewSearchContextStore(cache database.CacheClient) SearchContextStore {
	if cache == nil {
		return NewMemorySearchContext()
	}
	return &cachedSearchContext{
		cache: cache,
		log:   logger.New("searchContext").File("cached"),
	}
}

type memorySearchContext struct {
	mu      sync.RWMutex
	current *types.SearchContext
}

func NewMemorySearchContext() SearchContextStore {
	return &memorySearchContext{}
}

func (m *memorySearchContext) Latest(ctx context.Context) (*types.SearchContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil, nil
	}
	latest := *m.current
	latest.Results = append([]types.SearchResult(nil), m.current.Results...)
	return &latest, nil
}

func (m *memorySearchContext) Replace(ctx context.Context, searchContext types.SearchContext) error {
	searchContext.Results = append([]types.SearchResult(nil), searchContext.Results...)

	m.mu.Lock()
	m.current = &searchContext
	m.mu.Unlock()
	return nil
}

type cachedSearchContext struct {
	cache database.CacheClient
	log   logger.Logger
}

func (c *cachedSearchContext) builder(ctx context.Context) *database.CacheBuilder {
	return database.NewCacheBuilder(c.cache, constants.SearchContextCacheKey).
		WithContext(ctx).
		WithHash(constants.SearchContextCachePrefix).
		WithTTL(constants.SearchContextCacheExpiry).
		WithCompression()
}

func (c *cachedSearchContext) Latest(ctx context.Context) (*types.SearchContext, error) {
	log := c.log.TraceFromContext(ctx).Function("Latest")

	var latest types.SearchContext
	found, err := c.builder(ctx).Get(&latest)
	if err != nil {
		return nil, log.Err("failed to read search context", err)
	}
	if !found {
		return nil, nil
	}
	return &latest, nil
}

func (c *cachedSearchContext) Replace(ctx context.Context, searchContext types.SearchContext) error {
	log := c.log.TraceFromContext(ctx).Function("Replace")

	if err := c.builder(ctx).WithStruct(searchContext).Set(); err != nil {
		return log.Err("failed to store search context", err, "results", len(searchContext.Results))
	}
	return nil
}
