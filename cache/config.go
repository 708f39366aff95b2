package cache

import (
	"time"

	"github.com/goliatone/go-model-cache/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Driver             string        `yaml:"driver"`
	Namespace          string        `yaml:"namespace"`
	Capacity           int           `yaml:"capacity"`
	NumShards          int           `yaml:"num_shards"`
	TTL                time.Duration `yaml:"ttl"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
	EvictionInterval   time.Duration `yaml:"eviction_interval"`
	BufferItems        int64         `yaml:"buffer_items"`
}

// DefaultConfig returns a sturdyc backed Config whose entries never expire.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewBackend constructs the backend selected by cfg.Driver.
func NewBackend(cfg Config) (Backend, error) {
	if cfg.Driver == DriverRistretto {
		b, err := cacheinfra.NewRistrettoBackend(cfg.toInternal())
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	b, err := cacheinfra.NewSturdycBackend(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Driver:             c.Driver,
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
		BufferItems:        c.BufferItems,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Driver:             cfg.Driver,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
		BufferItems:        cfg.BufferItems,
	}
}
