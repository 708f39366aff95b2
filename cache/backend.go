package cache

import (
	"context"

	"github.com/goliatone/go-model-cache/internal/cacheinfra"
)

// NoExpiration keeps an entry until it is deleted.
const NoExpiration = cacheinfra.NoExpiration

// Supported backend drivers.
const (
	DriverSturdyc   = cacheinfra.DriverSturdyc
	DriverRistretto = cacheinfra.DriverRistretto
)

// collectionSuffix is appended to the entity type name to build the
// full-collection key, e.g. "WidgetList".
const collectionSuffix = "List"

// Backend is the key/value store behind the collection cache. Entries are
// stored with the TTL the backend was configured with.
type Backend interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// CollectionKey returns the key holding every record of typeName.
func CollectionKey(namespace, typeName string) string {
	return namespace + typeName + collectionSuffix
}
