package model

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// Action names a mutation.
type Action string

// Mutation actions delivered to observers.
const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Text codes used for observer failures.
const (
	TextCodeObserverFailed = "OBSERVER_FAILED"
	TextCodeObserverPanic  = "OBSERVER_PANIC"
)

// CreatedObserver is notified after a record is inserted.
type CreatedObserver[T any] interface {
	Created(ctx context.Context, rec T) error
}

// UpdatedObserver is notified after a record is updated.
type UpdatedObserver[T any] interface {
	Updated(ctx context.Context, rec T) error
}

// DeletedObserver is notified after a record is deleted.
type DeletedObserver[T any] interface {
	Deleted(ctx context.Context, rec T) error
}

// Bus fans mutation events of one entity type out to its observers. An
// observer may implement any subset of CreatedObserver, UpdatedObserver and
// DeletedObserver; events it does not handle are skipped.
type Bus[T any] struct {
	mu        sync.RWMutex
	observers []any
}

// NewBus returns an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Observe registers o and reports whether it was added. Registering the same
// observer again, or a value that handles none of the actions, is a no-op.
// Observers that are not comparable, including structs whose interface
// fields hold slices, maps or funcs, cannot be matched and are always added.
func (b *Bus[T]) Observe(o any) bool {
	if !handlesAny[T](o) {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if reflect.ValueOf(o).Comparable() {
		for _, existing := range b.observers {
			if reflect.ValueOf(existing).Comparable() && existing == o {
				return false
			}
		}
	}
	b.observers = append(b.observers, o)
	return true
}

// Len returns the number of registered observers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Notify delivers action to every observer handling it, synchronously and in
// registration order. A failing or panicking observer does not stop delivery;
// all failures are merged into the returned error.
func (b *Bus[T]) Notify(ctx context.Context, action Action, rec T) error {
	b.mu.RLock()
	observers := make([]any, len(b.observers))
	copy(observers, b.observers)
	b.mu.RUnlock()

	collector := goerrors.NewCollector(goerrors.WithContext(ctx))
	for _, o := range observers {
		collector.Add(deliver(ctx, o, action, rec))
	}

	if !collector.HasErrors() {
		return nil
	}
	return collector.Merge()
}

func deliver[T any](ctx context.Context, o any, action Action, rec T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = goerrors.New(fmt.Sprintf("%s observer %T panicked: %v", action, o, r), goerrors.CategoryInternal).
				WithTextCode(TextCodeObserverPanic).
				WithMetadata(map[string]any{"action": string(action), "observer": fmt.Sprintf("%T", o)})
		}
	}()

	switch action {
	case ActionCreated:
		if h, ok := o.(CreatedObserver[T]); ok {
			err = h.Created(ctx, rec)
		}
	case ActionUpdated:
		if h, ok := o.(UpdatedObserver[T]); ok {
			err = h.Updated(ctx, rec)
		}
	case ActionDeleted:
		if h, ok := o.(DeletedObserver[T]); ok {
			err = h.Deleted(ctx, rec)
		}
	}

	if err != nil {
		err = goerrors.Wrap(err, goerrors.CategoryOperation, fmt.Sprintf("%s observer %T failed", action, o)).
			WithTextCode(TextCodeObserverFailed).
			WithMetadata(map[string]any{"action": string(action), "observer": fmt.Sprintf("%T", o)})
	}
	return err
}

func handlesAny[T any](o any) bool {
	switch o.(type) {
	case CreatedObserver[T], UpdatedObserver[T], DeletedObserver[T]:
		return true
	}
	return false
}

// OnCreated adapts fn into an observer of created events.
func OnCreated[T any](fn func(ctx context.Context, rec T) error) CreatedObserver[T] {
	return &createdFunc[T]{fn: fn}
}

// OnUpdated adapts fn into an observer of updated events.
func OnUpdated[T any](fn func(ctx context.Context, rec T) error) UpdatedObserver[T] {
	return &updatedFunc[T]{fn: fn}
}

// OnDeleted adapts fn into an observer of deleted events.
func OnDeleted[T any](fn func(ctx context.Context, rec T) error) DeletedObserver[T] {
	return &deletedFunc[T]{fn: fn}
}

type createdFunc[T any] struct{ fn func(context.Context, T) error }

func (f *createdFunc[T]) Created(ctx context.Context, rec T) error { return f.fn(ctx, rec) }

type updatedFunc[T any] struct{ fn func(context.Context, T) error }

func (f *updatedFunc[T]) Updated(ctx context.Context, rec T) error { return f.fn(ctx, rec) }

type deletedFunc[T any] struct{ fn func(context.Context, T) error }

func (f *deletedFunc[T]) Deleted(ctx context.Context, rec T) error { return f.fn(ctx, rec) }
