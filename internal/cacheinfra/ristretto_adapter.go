package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// ErrSetDropped is returned when ristretto refuses or drops a write.
var ErrSetDropped = errors.New("cacheinfra: ristretto dropped the write")

const defaultBufferItems = 64

// RistrettoBackend stores entries in a ristretto cache. Every entry costs 1,
// so Capacity bounds the number of entries. ristretto cannot enumerate keys,
// so the adapter tracks the keys it wrote for DeleteByPrefix.
type RistrettoBackend struct {
	cache *ristretto.Cache[string, any]
	ttl   time.Duration

	mu   sync.Mutex
	keys map[string]struct{}
}

// NewRistrettoBackend validates cfg and builds the ristretto cache.
func NewRistrettoBackend(cfg Config) (*RistrettoBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	buffer := cfg.BufferItems
	if buffer == 0 {
		buffer = defaultBufferItems
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters:        int64(cfg.Capacity) * 10,
		MaxCost:            int64(cfg.Capacity),
		BufferItems:        buffer,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	b := &RistrettoBackend{
		cache: c,
		keys:  make(map[string]struct{}),
	}
	if cfg.TTL < NoExpiration {
		b.ttl = cfg.TTL
	}
	return b, nil
}

// Get returns the entry stored under key.
func (r *RistrettoBackend) Get(_ context.Context, key string) (any, bool, error) {
	v, ok := r.cache.Get(key)
	return v, ok, nil
}

// Set stores value under key and waits until it is visible to Get.
func (r *RistrettoBackend) Set(_ context.Context, key string, value any) error {
	var ok bool
	if r.ttl > 0 {
		ok = r.cache.SetWithTTL(key, value, 1, r.ttl)
	} else {
		ok = r.cache.Set(key, value, 1)
	}
	if !ok {
		return ErrSetDropped
	}
	r.cache.Wait()

	r.mu.Lock()
	r.keys[key] = struct{}{}
	r.mu.Unlock()
	return nil
}

// Delete removes a single entry.
func (r *RistrettoBackend) Delete(_ context.Context, key string) error {
	r.cache.Del(key)

	r.mu.Lock()
	delete(r.keys, key)
	r.mu.Unlock()
	return nil
}

// DeleteByPrefix removes every tracked entry whose key starts with prefix.
func (r *RistrettoBackend) DeleteByPrefix(_ context.Context, prefix string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.keys {
		if strings.HasPrefix(key, prefix) {
			r.cache.Del(key)
			delete(r.keys, key)
		}
	}
	return nil
}

// Close stops the ristretto goroutines.
func (r *RistrettoBackend) Close() error {
	r.cache.Close()
	return nil
}
