package model

import (
	"context"
	"fmt"
	"log/slog"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-model-cache/cache"
	"github.com/goliatone/go-model-cache/gateway"
)

// DefaultLimit bounds GetAll cold loads when no limit is given.
const DefaultLimit = 500

// TextCodeBindMismatch marks records whose Bind does not match the schema.
const TextCodeBindMismatch = "BIND_MISMATCH"

// Option configures a Repository.
type Option func(*options)

type options struct {
	backend      cache.Backend
	namespace    string
	logger       *slog.Logger
	defaultLimit int
}

// WithCache enables the full-collection cache on backend.
func WithCache(backend cache.Backend) Option {
	return func(o *options) { o.backend = backend }
}

// WithNamespace prefixes the collection cache key.
func WithNamespace(namespace string) Option {
	return func(o *options) { o.namespace = namespace }
}

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDefaultLimit overrides DefaultLimit.
func WithDefaultLimit(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.defaultLimit = limit
		}
	}
}

// Repository maps records of type T to rows of its schema table, serves the
// cached full collection and publishes mutations on its Bus.
type Repository[T Record] struct {
	schema       *Schema
	factory      func() T
	gw           gateway.Gateway
	bus          *Bus[T]
	collection   *cache.Collection[T]
	logger       *slog.Logger
	defaultLimit int
}

// NewRepository checks that factory produces records binding every schema
// property and returns the repository. Each repository owns the observer
// bus of its type.
func NewRepository[T Record](schema *Schema, factory func() T, gw gateway.Gateway, opts ...Option) (*Repository[T], error) {
	if schema == nil || factory == nil || gw == nil {
		return nil, goerrors.New("repository requires a schema, a factory and a gateway", goerrors.CategoryBadInput)
	}

	o := options{
		logger:       slog.New(slog.DiscardHandler),
		defaultLimit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := checkBindings(schema, factory()); err != nil {
		return nil, err
	}

	logger := o.logger.With(slog.String("entity", schema.Type()))
	return &Repository[T]{
		schema:       schema,
		factory:      factory,
		gw:           gw,
		bus:          NewBus[T](),
		collection:   cache.NewCollection[T](o.backend, o.namespace, schema.Type(), o.logger),
		logger:       logger,
		defaultLimit: o.defaultLimit,
	}, nil
}

func checkBindings[T Record](schema *Schema, rec T) error {
	bind := rec.Bind()
	var problems []goerrors.FieldError
	for _, f := range schema.fields {
		ptr, ok := bind[f.Name]
		if !ok {
			problems = append(problems, goerrors.FieldError{Field: f.Name, Message: "not bound"})
			continue
		}
		if err := assign(ptr, read(ptr)); err != nil {
			problems = append(problems, goerrors.FieldError{Field: f.Name, Message: err.Error()})
		}
	}
	if len(problems) > 0 {
		return goerrors.NewValidation(fmt.Sprintf("%s bindings do not match its schema", schema.Type()), problems...).
			WithTextCode(TextCodeBindMismatch)
	}
	return nil
}

// Schema returns the schema of T.
func (r *Repository[T]) Schema() *Schema { return r.schema }

// Bus returns the observer bus of T.
func (r *Repository[T]) Bus() *Bus[T] { return r.bus }

// Collection returns the full-collection cache of T.
func (r *Repository[T]) Collection() *cache.Collection[T] { return r.collection }

// Observe registers an observer on the bus of T. See Bus.Observe.
func (r *Repository[T]) Observe(o any) bool { return r.bus.Observe(o) }

// New returns a record initialised with the schema defaults.
func (r *Repository[T]) New() T {
	rec := r.factory()
	bind := rec.Bind()
	for _, f := range r.schema.fields {
		if f.Default == nil {
			continue
		}
		if err := assign(bind[f.Name], cloneValue(f.Default)); err != nil {
			r.logger.Warn("default does not fit field",
				slog.String("field", f.Name), slog.Any("error", err))
		}
	}
	return rec
}

// Hydrate overwrites rec with row and returns it. Columns missing from row
// take the field default; the strings "NULL" and "null" read as null.
// Columns outside the schema go to rec's extras when it embeds Extras.
// A value that cannot be converted, or whose shape does not fit the bound
// field, is logged and replaced by the default, or by the zero value when
// the default does not fit either. An error is only returned when a binding
// cannot be written at all, and rec may then be partly overwritten.
func (r *Repository[T]) Hydrate(rec T, row gateway.Row) (T, error) {
	bind := rec.Bind()

	for _, f := range r.schema.fields {
		value, err := r.fieldValue(f, row)
		if err != nil {
			r.logger.Warn("column conversion failed, using default",
				slog.String("field", f.Name), slog.String("column", f.Column), slog.Any("error", err))
			value = cloneValue(f.Default)
		}
		if err := r.assignField(bind[f.Name], f, value); err != nil {
			return rec, goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("hydrate %s.%s", r.schema.Type(), f.Name)).
				WithTextCode(TextCodeBindMismatch)
		}
	}

	if setter, ok := any(rec).(ExtraSetter); ok {
		for column, value := range row {
			if !r.schema.HasColumn(column) {
				setter.SetExtra(column, cloneValue(value))
			}
		}
	}
	return rec, nil
}

// assignField stores value, falling back to the default and then to the zero
// value. assign leaves the field untouched when it fails.
func (r *Repository[T]) assignField(ptr any, f Field, value any) error {
	err := assign(ptr, value)
	if err == nil {
		return nil
	}
	r.logger.Warn("column does not fit field, using default",
		slog.String("field", f.Name), slog.String("column", f.Column), slog.Any("error", err))
	if f.Default != nil {
		if assign(ptr, cloneValue(f.Default)) == nil {
			return nil
		}
	}
	return assign(ptr, nil)
}

func (r *Repository[T]) fieldValue(f Field, row gateway.Row) (any, error) {
	raw, ok := row[f.Column]
	if !ok {
		return cloneValue(f.Default), nil
	}
	if s, isString := raw.(string); isString && (s == "NULL" || s == "null") {
		return nil, nil
	}
	if b, isBytes := raw.([]byte); isBytes && (string(b) == "NULL" || string(b) == "null") {
		return nil, nil
	}
	value, err := Convert(raw, f.Storage, f.Value)
	if err != nil {
		return nil, err
	}
	return cloneValue(value), nil
}

// Load hydrates row into a fresh record that shares no state with any other.
func (r *Repository[T]) Load(row gateway.Row) (T, error) {
	return r.Hydrate(r.New(), row)
}

func (r *Repository[T]) loadAll(rows []gateway.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := r.Load(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Values flattens rec into a column map, converting each property back to
// its storage type.
func (r *Repository[T]) Values(rec T) (gateway.Row, error) {
	bind := rec.Bind()
	row := make(gateway.Row, len(r.schema.fields))
	for _, f := range r.schema.fields {
		v, err := Convert(read(bind[f.Name]), f.Value, f.Storage)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, fmt.Sprintf("encode %s.%s", r.schema.Type(), f.Name))
		}
		row[f.Column] = v
	}
	return row, nil
}

// Identity returns the identity property of rec.
func (r *Repository[T]) Identity(rec T) any {
	return read(rec.Bind()[r.schema.index])
}

func (r *Repository[T]) storageID(id any) (any, error) {
	f := r.schema.IndexField()
	sid, err := Convert(id, f.Value, f.Storage)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, fmt.Sprintf("encode %s identity", r.schema.Type()))
	}
	return sid, nil
}

// Get loads the record with identity id. An empty id or a missing row yields
// false without an error.
func (r *Repository[T]) Get(ctx context.Context, id any) (T, bool, error) {
	var zero T
	if isEmpty(id) {
		return zero, false, nil
	}

	sid, err := r.storageID(id)
	if err != nil {
		return zero, false, err
	}

	rows, err := r.gw.Fetch(ctx, r.schema.Table(), gateway.Query{
		Filters: []gateway.Filter{gateway.Where(r.schema.TableIndex(), sid)},
		Limit:   1,
	})
	if err != nil {
		return zero, false, err
	}
	if len(rows) == 0 {
		return zero, false, nil
	}

	rec, err := r.Load(rows[0])
	if err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

// GetAll returns every record of T from the collection cache. On a miss it
// loads up to limit rows ordered by identity, or DefaultLimit when limit is
// not positive, and caches them. A hit ignores limit. The returned records
// are shared with the cache and should be treated as read only.
func (r *Repository[T]) GetAll(ctx context.Context, limit int) ([]T, error) {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	return r.collection.Get(ctx, func(ctx context.Context) ([]T, error) {
		r.logger.DebugContext(ctx, "loading collection", slog.Int("limit", limit))
		rows, err := r.gw.Fetch(ctx, r.schema.Table(), gateway.Query{
			OrderBy: []string{r.schema.TableIndex()},
			Limit:   limit,
		})
		if err != nil {
			return nil, err
		}
		return r.loadAll(rows)
	})
}

// UpdateAll replaces the cached collection of T with recs.
func (r *Repository[T]) UpdateAll(ctx context.Context, recs []T) error {
	return r.collection.Store(ctx, recs)
}

// Invalidate evicts the cached collection of T.
func (r *Repository[T]) Invalidate(ctx context.Context) error {
	return r.collection.Invalidate(ctx)
}

// Find runs a filtered query against the store. It never uses the cache.
func (r *Repository[T]) Find(ctx context.Context, q gateway.Query) ([]T, error) {
	rows, err := r.gw.Fetch(ctx, r.schema.Table(), q)
	if err != nil {
		return nil, err
	}
	return r.loadAll(rows)
}

// Save inserts rec when its identity is empty and updates it otherwise. On
// insert the generated identity is written back to rec. It returns the
// identity and true on success, then notifies observers with ActionCreated or
// ActionUpdated. A write the store rejects returns false without an error and
// notifies nobody. Infrastructure failures are returned as errors.
func (r *Repository[T]) Save(ctx context.Context, rec T) (any, bool, error) {
	values, err := r.Values(rec)
	if err != nil {
		return nil, false, err
	}

	table, column := r.schema.Table(), r.schema.TableIndex()
	id := r.Identity(rec)
	insert := isEmpty(id)

	delete(values, column)

	var where []gateway.Filter
	if !insert {
		sid, err := r.storageID(id)
		if err != nil {
			return nil, false, err
		}
		where = []gateway.Filter{gateway.Where(column, sid)}
	}

	newID, ok, err := r.gw.UpdateOrInsert(ctx, table, column, where, values)
	if err != nil {
		if gateway.IsWriteRejected(err) {
			r.logger.InfoContext(ctx, "write rejected", slog.Any("error", err))
			return nil, false, nil
		}
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	action := ActionUpdated
	if insert {
		action = ActionCreated
		if err := r.setIdentity(rec, newID); err != nil {
			return nil, false, err
		}
	}

	r.notify(ctx, action, rec)
	return r.Identity(rec), true, nil
}

func (r *Repository[T]) setIdentity(rec T, storageID any) error {
	f := r.schema.IndexField()
	id, err := Convert(storageID, f.Storage, f.Value)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("decode %s identity", r.schema.Type()))
	}
	if err := assign(rec.Bind()[f.Name], id); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("set %s identity", r.schema.Type())).
			WithTextCode(TextCodeBindMismatch)
	}
	return nil
}

// Delete removes the record with identity id and notifies observers with
// ActionDeleted and a record carrying that identity. An empty id, a missing
// row or a rejected delete yields false without an error.
func (r *Repository[T]) Delete(ctx context.Context, id any) (bool, error) {
	if isEmpty(id) {
		return false, nil
	}
	vid, err := r.valueID(id)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryBadInput, fmt.Sprintf("delete %s", r.schema.Type()))
	}
	rec := r.New()
	if err := assign(rec.Bind()[r.schema.index], vid); err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryBadInput, fmt.Sprintf("delete %s", r.schema.Type()))
	}
	return r.DeleteRecord(ctx, rec)
}

// valueID brings an identity given as text to the value type of the
// identity property.
func (r *Repository[T]) valueID(id any) (any, error) {
	f := r.schema.IndexField()
	if _, ok := asText(id); !ok || f.Value == TypeString {
		return id, nil
	}
	return Convert(id, TypeString, f.Value)
}

// DeleteRecord removes rec by its identity and passes rec to observers.
func (r *Repository[T]) DeleteRecord(ctx context.Context, rec T) (bool, error) {
	id := r.Identity(rec)
	if isEmpty(id) {
		return false, nil
	}

	sid, err := r.storageID(id)
	if err != nil {
		return false, err
	}

	n, err := r.gw.Delete(ctx, r.schema.Table(), gateway.Where(r.schema.TableIndex(), sid))
	if err != nil {
		if gateway.IsWriteRejected(err) {
			r.logger.InfoContext(ctx, "delete rejected", slog.Any("error", err))
			return false, nil
		}
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	r.notify(ctx, ActionDeleted, rec)
	return true, nil
}

// notify publishes on the bus. Observer failures are logged, never returned:
// the write they follow has already succeeded.
func (r *Repository[T]) notify(ctx context.Context, action Action, rec T) {
	err := r.bus.Notify(ctx, action, rec)
	if err == nil {
		return
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		goerrors.LogBySeverity(r.logger, rich)
		return
	}
	r.logger.ErrorContext(ctx, "observer failed", slog.String("action", string(action)), slog.Any("error", err))
}
