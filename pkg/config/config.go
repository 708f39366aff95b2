package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-model-cache/cache"
	"github.com/goliatone/go-model-cache/gateway"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MODELCACHE_"

// TextCodeInvalidConfig marks configuration that failed validation.
const TextCodeInvalidConfig = "INVALID_CONFIG"

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Cache    cache.Config   `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig selects the store behind the gateway.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	PingTimeout     time.Duration `yaml:"ping_timeout"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns an in-memory sqlite setup with the default cache.
func Default() Config {
	pool := gateway.DefaultOpenOptions()
	return Config{
		Database: DatabaseConfig{
			Driver: gateway.DriverSQLite,
			DSN:    "file::memory:?cache=shared",
			// a second connection to :memory: would see an empty database
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: pool.ConnMaxLifetime,
			PingTimeout:     pool.PingTimeout,
		},
		Cache: cache.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: FormatText,
		},
	}
}

// Load starts from Default, applies the YAML file at path when it exists,
// then MODELCACHE_* environment variables, and validates the result. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, goerrors.Wrap(err, goerrors.CategoryInternal, "read config "+path)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, goerrors.Wrap(err, goerrors.CategoryBadInput, "parse config "+path).
					WithTextCode(TextCodeInvalidConfig)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DB_DRIVER":       &c.Database.Driver,
		"DB_DSN":          &c.Database.DSN,
		"CACHE_DRIVER":    &c.Cache.Driver,
		"CACHE_NAMESPACE": &c.Cache.Namespace,
		"LOG_LEVEL":       &c.Log.Level,
		"LOG_FORMAT":      &c.Log.Format,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DB_MAX_OPEN_CONNS": &c.Database.MaxOpenConns,
		"CACHE_CAPACITY":    &c.Cache.Capacity,
		"CACHE_NUM_SHARDS":  &c.Cache.NumShards,
	}
	for name, dst := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return envError(name, v, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "CACHE_TTL"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return envError("CACHE_TTL", v, err)
		}
		c.Cache.TTL = d
	}
	return nil
}

func envError(name, value string, err error) error {
	return goerrors.NewValidation(fmt.Sprintf("invalid environment variable %s%s", EnvPrefix, name),
		goerrors.FieldError{Field: EnvPrefix + name, Message: err.Error(), Value: value}).
		WithTextCode(TextCodeInvalidConfig)
}

// Validate checks every section.
func (c Config) Validate() error {
	collector := goerrors.NewCollector()
	collector.Add(c.Database.Validate())
	collector.Add(c.Cache.Validate())
	collector.Add(c.Log.Validate())
	if collector.HasErrors() {
		return collector.Merge()
	}
	return nil
}

// Validate checks the database section.
func (d DatabaseConfig) Validate() error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required,
			validation.In(gateway.DriverSQLite, gateway.DriverPostgres, gateway.DriverPGX)),
		validation.Field(&d.DSN, validation.Required),
		validation.Field(&d.MaxOpenConns, validation.Min(0)),
		validation.Field(&d.MaxIdleConns, validation.Min(0)),
	)
	if err == nil {
		return nil
	}
	return goerrors.FromOzzoValidation(err, "invalid database configuration").WithTextCode(TextCodeInvalidConfig)
}

// Validate checks the log section.
func (l LogConfig) Validate() error {
	err := validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In(FormatText, FormatJSON)),
	)
	if err == nil {
		return nil
	}
	return goerrors.FromOzzoValidation(err, "invalid log configuration").WithTextCode(TextCodeInvalidConfig)
}

// OpenOptions returns the pool settings for gateway.Open.
func (d DatabaseConfig) OpenOptions() gateway.OpenOptions {
	return gateway.OpenOptions{
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		PingTimeout:     d.PingTimeout,
	}
}

// NewLogger builds a slog logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
