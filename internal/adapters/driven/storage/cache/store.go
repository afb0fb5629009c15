// Package cache decorates a DocumentStore with an in-process search cache.
//
// Agent turns frequently repeat the same lookup while a user refines a
// question. Results are cached per argument set for a short TTL and the
// whole cache is flushed after any successful upsert, so a pipeline run is
// visible to the next search.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
	"github.com/custodia-labs/fedreg/internal/logger"
)

// DefaultTTL is used when New is given a non-positive TTL.
const DefaultTTL = time.Minute

// Store wraps a DocumentStore and caches Search results.
type Store struct {
	driven.DocumentStore
	cache *gocache.Cache
}

var _ driven.DocumentStore = (*Store)(nil)

// New wraps inner with a search cache.
func New(inner driven.DocumentStore, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		DocumentStore: inner,
		cache:         gocache.New(ttl, 2*ttl),
	}
}

// Search serves args from cache when present.
func (s *Store) Search(ctx context.Context, args domain.SearchArgs) ([]domain.Document, error) {
	key := args.CacheKey()
	if cached, ok := s.cache.Get(key); ok {
		logger.Debug("search cache hit: %s", key)
		return copyDocs(cached.([]domain.Document)), nil
	}

	docs, err := s.DocumentStore.Search(ctx, args)
	if err != nil {
		return nil, err
	}

	s.cache.SetDefault(key, copyDocs(docs))
	return docs, nil
}

// UpsertBatch writes through and invalidates every cached search after any
// successful batch, including one that only refreshed last-seen times.
func (s *Store) UpsertBatch(
	ctx context.Context,
	docs []domain.Document,
	seenAt time.Time,
) (domain.UpsertCounts, error) {
	counts, err := s.DocumentStore.UpsertBatch(ctx, docs, seenAt)
	if err == nil {
		s.cache.Flush()
	}
	return counts, err
}

// Len returns the number of cached searches.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

func copyDocs(docs []domain.Document) []domain.Document {
	out := make([]domain.Document, len(docs))
	for i := range docs {
		out[i] = docs[i].Clone()
	}
	return out
}
