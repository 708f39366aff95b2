package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// FetchFn loads a value from the source of truth on a cache miss.
type FetchFn[T any] func(ctx context.Context) (T, error)

// GetOrFetch returns the value stored under key, or calls fetch and stores its
// result. The backend is best effort: a failing Get is treated as a miss, a
// failing Set is logged, and a cached value of the wrong type is evicted and
// reloaded. Only fetch errors are returned, and they are never cached.
// A nil backend turns every call into a direct fetch.
func GetOrFetch[T any](ctx context.Context, backend Backend, key string, fetch FetchFn[T], logger *slog.Logger) (T, error) {
	if logger == nil {
		logger = discardLogger
	}
	if backend == nil {
		return fetch(ctx)
	}

	v, ok, err := backend.Get(ctx, key)
	switch {
	case err != nil:
		logger.WarnContext(ctx, "cache get failed, reading from source",
			slog.String("key", key), slog.Any("error", err))
	case ok:
		if v == nil {
			var zero T
			return zero, nil
		}
		if typed, match := v.(T); match {
			return typed, nil
		}
		logger.WarnContext(ctx, "cached value has unexpected type, evicting",
			slog.String("key", key), slog.String("type", fmt.Sprintf("%T", v)))
		if err := backend.Delete(ctx, key); err != nil {
			logger.WarnContext(ctx, "cache delete failed",
				slog.String("key", key), slog.Any("error", err))
		}
	}

	result, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := backend.Set(ctx, key, result); err != nil {
		logger.WarnContext(ctx, "cache set failed",
			slog.String("key", key), slog.Any("error", err))
	}
	return result, nil
}

var discardLogger = slog.New(slog.DiscardHandler)
