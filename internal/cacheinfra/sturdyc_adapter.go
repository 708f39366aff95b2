package cacheinfra

import (
	"context"
	"strings"

	"github.com/viccon/sturdyc"
)

// SturdycBackend stores entries in a sharded sturdyc client.
type SturdycBackend struct {
	client *sturdyc.Client[any]
}

// NewSturdycBackend validates cfg and builds the sturdyc client.
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New, the
// rest through options.
func NewSturdycBackend(cfg Config) (*SturdycBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		sturdycOptions(cfg)...,
	)
	return &SturdycBackend{client: client}, nil
}

func sturdycOptions(cfg Config) []sturdyc.Option {
	var options []sturdyc.Option
	if cfg.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(cfg.EvictionInterval))
	}
	return options
}

// Get returns the entry stored under key.
func (s *SturdycBackend) Get(_ context.Context, key string) (any, bool, error) {
	v, ok := s.client.Get(key)
	return v, ok, nil
}

// Set stores value under key using the configured TTL.
func (s *SturdycBackend) Set(_ context.Context, key string, value any) error {
	s.client.Set(key, value)
	return nil
}

// Delete removes a single entry.
func (s *SturdycBackend) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *SturdycBackend) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Size returns the number of stored entries.
func (s *SturdycBackend) Size() int {
	return s.client.Size()
}
