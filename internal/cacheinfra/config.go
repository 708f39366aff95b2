package cacheinfra

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

// Supported backend drivers.
const (
	DriverSturdyc   = "sturdyc"
	DriverRistretto = "ristretto"
)

// NoExpiration is the TTL used for entries that should live until they are
// explicitly evicted.
const NoExpiration = 100 * 365 * 24 * time.Hour

// TextCodeInvalidConfig marks cache configuration validation failures.
const TextCodeInvalidConfig = "INVALID_CACHE_CONFIG"

// Config holds the settings shared by all backend adapters.
type Config struct {
	// Driver selects the backend. Empty means sturdyc.
	Driver string

	// Capacity is the maximum number of entries the backend keeps.
	Capacity int

	// NumShards is the sturdyc shard count. Ignored by ristretto.
	NumShards int

	// TTL applies to every entry. NoExpiration keeps entries until they
	// are deleted.
	TTL time.Duration

	// EvictionPercentage is the share of a full sturdyc shard evicted to make
	// room. Ignored by ristretto.
	EvictionPercentage int

	// EvictionInterval sets how often sturdyc sweeps expired entries.
	// Zero uses the sturdyc default.
	EvictionInterval time.Duration

	// BufferItems is the ristretto Get buffer size. Zero uses 64.
	BufferItems int64
}

// DefaultConfig returns the settings used for full-collection caching:
// a small sharded sturdyc store whose entries never expire.
func DefaultConfig() Config {
	return Config{
		Driver:             DriverSturdyc,
		Capacity:           10000,
		NumShards:          256,
		TTL:                NoExpiration,
		EvictionPercentage: 10,
	}
}

// Validate checks the configuration for the selected driver.
func (c Config) Validate() error {
	sturdyc := c.Driver == "" || c.Driver == DriverSturdyc

	err := validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.In(DriverSturdyc, DriverRistretto)),
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.When(sturdyc, validation.Required, validation.Min(1))),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Duration(1))),
		validation.Field(&c.EvictionPercentage, validation.When(sturdyc, validation.Required, validation.Min(1), validation.Max(100))),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.BufferItems, validation.Min(int64(0))),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid cache configuration").
			WithTextCode(TextCodeInvalidConfig)
	}
	return nil
}
