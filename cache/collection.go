package cache

import (
	"context"
	"log/slog"
)

// Collection caches the complete, unfiltered set of records of one entity
// type under a single key. It never caches subsets: a cold load may be
// bounded by the caller, but whatever it returns becomes the cached set.
type Collection[T any] struct {
	backend Backend
	key     string
	logger  *slog.Logger
}

// NewCollection binds a collection for typeName to backend. A nil backend
// disables caching.
func NewCollection[T any](backend Backend, namespace, typeName string, logger *slog.Logger) *Collection[T] {
	if logger == nil {
		logger = discardLogger
	}
	return &Collection[T]{
		backend: backend,
		key:     CollectionKey(namespace, typeName),
		logger:  logger.With(slog.String("entity", typeName)),
	}
}

// Key returns the cache key of the collection.
func (c *Collection[T]) Key() string {
	return c.key
}

// Get serves the cached collection, loading and storing it on a miss.
func (c *Collection[T]) Get(ctx context.Context, load FetchFn[[]T]) ([]T, error) {
	return GetOrFetch(ctx, c.backend, c.key, load, c.logger)
}

// Store overwrites the cached collection with items.
func (c *Collection[T]) Store(ctx context.Context, items []T) error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Set(ctx, c.key, items)
}

// Invalidate evicts the cached collection so the next Get reloads it.
func (c *Collection[T]) Invalidate(ctx context.Context) error {
	if c.backend == nil {
		return nil
	}
	if err := c.backend.Delete(ctx, c.key); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "collection invalidated", slog.String("key", c.key))
	return nil
}
