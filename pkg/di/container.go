package di

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-model-cache/cache"
	"github.com/goliatone/go-model-cache/gateway"
	"github.com/goliatone/go-model-cache/model"
	"github.com/goliatone/go-model-cache/pkg/config"
	"github.com/goliatone/go-model-cache/repositorycache"
)

// Container holds the process wide dependencies of the repositories: one
// cache backend, one gateway and one logger. Each entity type registered on
// it gets a single repository, a single observer bus and a single
// invalidator.
type Container struct {
	config  cache.Config
	backend cache.Backend
	gw      gateway.Gateway
	db      *bun.DB
	logger  *slog.Logger

	mu    sync.Mutex
	repos map[string]any
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger handed to repositories.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDB makes the container own db and close it on Close.
func WithDB(db *bun.DB) Option {
	return func(c *Container) { c.db = db }
}

// NewContainer validates cfg, builds its cache backend and binds it to gw.
func NewContainer(cfg cache.Config, gw gateway.Gateway, opts ...Option) (*Container, error) {
	if gw == nil {
		return nil, goerrors.New("container requires a gateway", goerrors.CategoryBadInput)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := cache.NewBackend(cfg)
	if err != nil {
		return nil, err
	}

	c := &Container{
		config:  cfg,
		backend: backend,
		gw:      gw,
		logger:  slog.New(slog.DiscardHandler),
		repos:   make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewContainerWithDefaults creates a container over gw with cache.DefaultConfig.
func NewContainerWithDefaults(gw gateway.Gateway, opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), gw, opts...)
}

// FromConfig opens the configured database, installs a query log hook and
// builds the container. Logs go to stderr.
func FromConfig(ctx context.Context, cfg config.Config) (*Container, error) {
	return FromConfigWriter(ctx, cfg, os.Stderr)
}

// FromConfigWriter is FromConfig with logs written to w.
func FromConfigWriter(ctx context.Context, cfg config.Config, w io.Writer) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Log.NewLogger(w)

	db, err := gateway.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, cfg.Database.OpenOptions())
	if err != nil {
		return nil, err
	}
	db.AddQueryHook(gateway.NewQueryLogHook(logger))

	c, err := NewContainer(cfg.Cache, gateway.NewBunGateway(db), WithLogger(logger), WithDB(db))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("container ready",
		slog.String("db_driver", cfg.Database.Driver),
		slog.String("cache_driver", cfg.Cache.Driver),
		slog.String("namespace", cfg.Cache.Namespace))
	return c, nil
}

// Backend returns the shared cache backend.
func (c *Container) Backend() cache.Backend {
	return c.backend
}

// Gateway returns the shared gateway.
func (c *Container) Gateway() gateway.Gateway {
	return c.gw
}

// DB returns the database opened by FromConfig, or nil.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Logger returns the container logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Config returns a copy of the cache configuration.
func (c *Container) Config() cache.Config {
	return c.config
}

// Register returns the repository of schema's entity type, creating it on
// first use with the shared cache and an attached invalidator. Later calls
// for the same type return the first repository and ignore their
// arguments.
//
// Since Go methods cannot have type parameters, this is a package level
// function. Example: Register(container, userSchema, newUser)
func Register[T model.Record](c *Container, schema *model.Schema, factory func() T, opts ...model.Option) (*model.Repository[T], error) {
	if schema == nil {
		return nil, goerrors.New("register requires a schema", goerrors.CategoryBadInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.repos[schema.Type()]; ok {
		repo, ok := existing.(*model.Repository[T])
		if !ok {
			return nil, goerrors.New(fmt.Sprintf("%s is registered with a different record type", schema.Type()), goerrors.CategoryConflict)
		}
		return repo, nil
	}

	base := []model.Option{
		model.WithCache(c.backend),
		model.WithNamespace(c.config.Namespace),
		model.WithLogger(c.logger),
	}
	repo, err := model.NewRepository(schema, factory, c.gw, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	repositorycache.Attach(repo)

	c.repos[schema.Type()] = repo
	c.logger.Debug("repository registered", slog.String("entity", schema.Type()), slog.String("table", schema.Table()))
	return repo, nil
}

// Lookup returns the repository registered for typeName.
func Lookup[T model.Record](c *Container, typeName string) (*model.Repository[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	repo, ok := c.repos[typeName].(*model.Repository[T])
	return repo, ok
}

// ResetCache evicts every collection under the configured namespace.
func (c *Container) ResetCache(ctx context.Context) error {
	return c.backend.DeleteByPrefix(ctx, c.config.Namespace)
}

// Close releases the backend and the database opened by FromConfig.
func (c *Container) Close() error {
	collector := goerrors.NewCollector()
	if closer, ok := c.backend.(io.Closer); ok {
		collector.Add(closer.Close())
	}
	if c.db != nil {
		collector.Add(c.db.Close())
	}
	if collector.HasErrors() {
		return collector.Merge()
	}
	return nil
}
