package repositorycache

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-model-cache/cache"
	"github.com/goliatone/go-model-cache/model"
)

// TextCodeInvalidationFailed marks a mutation whose collection could not be evicted.
const TextCodeInvalidationFailed = "INVALIDATION_FAILED"

var (
	_ model.CreatedObserver[any] = Invalidator[any]{}
	_ model.UpdatedObserver[any] = Invalidator[any]{}
	_ model.DeletedObserver[any] = Invalidator[any]{}
)

// Invalidator evicts the full cached collection of T on every mutation of
// T. It never touches single records: any write forces the next read of the
// collection to reload it from the store.
//
// Invalidators over the same collection compare equal, so registering one on
// a bus that already holds an equal value is a no-op.
type Invalidator[T any] struct {
	collection *cache.Collection[T]
}

// NewInvalidator returns an invalidator for collection.
func NewInvalidator[T any](collection *cache.Collection[T]) Invalidator[T] {
	return Invalidator[T]{collection: collection}
}

// Created implements model.CreatedObserver.
func (i Invalidator[T]) Created(ctx context.Context, _ T) error {
	return i.evict(ctx, model.ActionCreated)
}

// Updated implements model.UpdatedObserver.
func (i Invalidator[T]) Updated(ctx context.Context, _ T) error {
	return i.evict(ctx, model.ActionUpdated)
}

// Deleted implements model.DeletedObserver.
func (i Invalidator[T]) Deleted(ctx context.Context, _ T) error {
	return i.evict(ctx, model.ActionDeleted)
}

func (i Invalidator[T]) evict(ctx context.Context, action model.Action) error {
	if i.collection == nil {
		return nil
	}
	if err := i.collection.Invalidate(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, fmt.Sprintf("invalidate %s after %s", i.collection.Key(), action)).
			WithTextCode(TextCodeInvalidationFailed).
			WithMetadata(map[string]any{"key": i.collection.Key(), "action": string(action)})
	}
	return nil
}

// Attach registers the invalidator of repo's collection on repo's bus and
// reports whether it was added. Attaching the same repository twice
// registers it once.
func Attach[T model.Record](repo *model.Repository[T]) bool {
	return repo.Observe(NewInvalidator(repo.Collection()))
}
