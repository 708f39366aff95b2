// Package cache holds the full-collection cache and the backend it runs on.
//
// # Overview
//
// Each entity type owns one cache entry, keyed "{Namespace}{TypeName}List",
// holding every record of that type. Entries are written with the backend
// TTL, which defaults to NoExpiration: they stay until something evicts them.
//
//	backend, err := cache.NewBackend(cache.DefaultConfig())
//	users := cache.NewCollection[*User](backend, "", "User", logger)
//
//	all, err := users.Get(ctx, func(ctx context.Context) ([]*User, error) {
//		return loadUsers(ctx, 500)
//	})
//
// The load function only runs on a miss. Whatever it returns is the cached
// set, so a limit given to the load bounds the cold query only.
//
// # Backends
//
// NewBackend picks the adapter named by Config.Driver:
//
//   - "sturdyc" (default): sharded in-memory store, prefix deletes scan keys
//   - "ristretto": admission-controlled store, prefix deletes use tracked keys
//
// Any type implementing Backend can be used instead.
//
// # Failure semantics
//
// The cache is never required for correctness. GetOrFetch treats a failing
// Get as a miss and logs failing writes, so an unavailable backend degrades
// to direct reads. Load errors are returned to the caller and never cached.
//
// # Consistency
//
// Concurrent misses may load and store the same collection twice; the last
// write wins. A load that starts before an invalidation and finishes after it
// can store a stale snapshot until the next mutation. This window is accepted
// for reference data that is read far more often than it is written.
package cache
