// Package repositorycache keeps full-collection caches in step with writes.
//
// # Overview
//
// An Invalidator observes the mutation bus of one entity type. On every
// created, updated or deleted event it evicts the cached collection of that
// type, so the next GetAll reloads it from the store:
//
//	repo, err := model.NewRepository(widgetSchema, newWidget, gw, model.WithCache(backend))
//	if err != nil {
//		return err
//	}
//	repositorycache.Attach(repo)
//
// Attach is idempotent: invalidators over the same collection compare equal
// and the bus registers each observer once.
//
// # Invalidation Strategy
//
// Eviction is coarse. A single mutation drops the whole collection, even when
// the mutated row is not part of the cached set. Only writes that succeed are
// published, so a rejected save leaves the cached collection in place.
//
// Saves that change no column still publish an update and still evict.
//
// # Error Handling
//
// A backend that fails to evict is reported as an INVALIDATION_FAILED error
// to the bus, which logs it. The write itself has already succeeded and is
// not rolled back; the collection may stay stale until the next successful
// eviction or until the backend drops it.
//
// # See Also
//
// For the cache and its backends, see the cache package.
// For wiring repositories and invalidators from configuration, see pkg/di.
package repositorycache
