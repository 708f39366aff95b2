package repositorycache

import (
	"context"
	"errors"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-model-cache/cache"
	"github.com/goliatone/go-model-cache/gateway"
	"github.com/goliatone/go-model-cache/model"
)

// Widget is the entity used throughout these tests
type Widget struct {
	ID   int
	Name string
}

func (w *Widget) Bind() map[string]any {
	return map[string]any{"id": &w.ID, "name": &w.Name}
}

var widgetSchema = model.MustSchema("Widget", []model.Field{
	{Name: "id", Value: model.TypeInt},
	{Name: "name", Value: model.TypeString, Default: ""},
}, model.WithTable("widgets"))

// countingGateway counts Fetch calls made against the wrapped gateway
type countingGateway struct {
	gateway.Gateway

	mu      sync.Mutex
	fetches int
}

func (g *countingGateway) Fetch(ctx context.Context, table string, q gateway.Query) ([]gateway.Row, error) {
	g.mu.Lock()
	g.fetches++
	g.mu.Unlock()
	return g.Gateway.Fetch(ctx, table, q)
}

func (g *countingGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetches
}

// brokenBackend fails every call
type brokenBackend struct{}

var errBackendDown = errors.New("backend down")

func (brokenBackend) Get(context.Context, string) (any, bool, error) { return nil, false, errBackendDown }
func (brokenBackend) Set(context.Context, string, any) error         { return errBackendDown }
func (brokenBackend) Delete(context.Context, string) error           { return errBackendDown }
func (brokenBackend) DeleteByPrefix(context.Context, string) error   { return errBackendDown }

func openSQLite(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	db, err := gateway.Open(ctx, gateway.DriverSQLite, ":memory:", gateway.OpenOptions{
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.ExecContext(ctx, `CREATE TABLE widgets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return db
}

func newBackend(t *testing.T) cache.Backend {
	t.Helper()
	cfg := cache.DefaultConfig()
	cfg.Capacity = 100
	cfg.NumShards = 4
	backend, err := cache.NewBackend(cfg)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	return backend
}

func newCachedRepository(t *testing.T, gw gateway.Gateway, backend cache.Backend) *model.Repository[*Widget] {
	t.Helper()
	repo, err := model.NewRepository(widgetSchema, func() *Widget { return &Widget{} }, gw, model.WithCache(backend))
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	if !Attach(repo) {
		t.Fatal("expected invalidator to be attached")
	}
	return repo
}

func TestAttach_IsIdempotent(t *testing.T) {
	repo := newCachedRepository(t, gateway.NewMemoryGateway(), newBackend(t))

	if Attach(repo) {
		t.Error("expected second Attach to be a no-op")
	}
	if repo.Observe(NewInvalidator(repo.Collection())) {
		t.Error("expected an equal invalidator to be rejected")
	}
	if repo.Bus().Len() != 1 {
		t.Errorf("expected exactly one observer, got %d", repo.Bus().Len())
	}
}

func TestInvalidator_EvictsOnEveryAction(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)
	collection := cache.NewCollection[*Widget](backend, "", "Widget", nil)
	inv := NewInvalidator(collection)

	actions := map[string]func(context.Context, *Widget) error{
		"created": inv.Created,
		"updated": inv.Updated,
		"deleted": inv.Deleted,
	}

	for name, notify := range actions {
		t.Run(name, func(t *testing.T) {
			if err := collection.Store(ctx, []*Widget{{ID: 1}}); err != nil {
				t.Fatalf("failed to store collection: %v", err)
			}
			if err := notify(ctx, &Widget{ID: 1}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, ok, _ := backend.Get(ctx, collection.Key()); ok {
				t.Errorf("expected %s to evict %s", name, collection.Key())
			}
		})
	}
}

func TestInvalidator_ReportsBackendFailure(t *testing.T) {
	collection := cache.NewCollection[*Widget](brokenBackend{}, "crm:", "Widget", nil)

	err := NewInvalidator(collection).Updated(context.Background(), &Widget{})
	if !errors.Is(err, errBackendDown) {
		t.Fatalf("expected backend error to be preserved, got %v", err)
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if rich.TextCode != TextCodeInvalidationFailed {
		t.Errorf("expected text code %s, got %s", TextCodeInvalidationFailed, rich.TextCode)
	}
	if rich.Metadata["key"] != "crm:WidgetList" {
		t.Errorf("expected key metadata, got %v", rich.Metadata)
	}
}

func TestInvalidator_ZeroValueIsNoop(t *testing.T) {
	var inv Invalidator[*Widget]
	if err := inv.Deleted(context.Background(), &Widget{}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestSave_InvalidatesCollection(t *testing.T) {
	ctx := context.Background()
	gw := &countingGateway{Gateway: gateway.NewMemoryGateway()}
	repo := newCachedRepository(t, gw, newBackend(t))

	seed := repo.New()
	seed.Name = "a"
	if _, ok, err := repo.Save(ctx, seed); err != nil || !ok {
		t.Fatalf("save failed: ok=%v err=%v", ok, err)
	}

	if _, err := repo.GetAll(ctx, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.GetAll(ctx, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.count() != 1 {
		t.Fatalf("expected one fetch before the mutation, got %d", gw.count())
	}

	// The mutated row is outside the cached result, the whole collection still goes.
	other := repo.New()
	other.Name = "b"
	if _, ok, err := repo.Save(ctx, other); err != nil || !ok {
		t.Fatalf("save failed: ok=%v err=%v", ok, err)
	}

	all, err := repo.GetAll(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.count() != 2 {
		t.Errorf("expected the next read to reload, got %d fetches", gw.count())
	}
	if len(all) != 1 || all[0].Name != "a" {
		t.Errorf("expected the bounded reload, got %v", all)
	}

	if ok, err := repo.Delete(ctx, other.ID); err != nil || !ok {
		t.Fatalf("delete failed: ok=%v err=%v", ok, err)
	}
	if _, err := repo.GetAll(ctx, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.count() != 3 {
		t.Errorf("expected delete to invalidate, got %d fetches", gw.count())
	}
}

func TestSave_RejectedWriteKeepsCollection(t *testing.T) {
	ctx := context.Background()
	gw := &countingGateway{Gateway: gateway.NewBunGateway(openSQLite(t))}
	repo := newCachedRepository(t, gw, newBackend(t))

	first := repo.New()
	first.Name = "taken"
	if _, ok, err := repo.Save(ctx, first); err != nil || !ok {
		t.Fatalf("save failed: ok=%v err=%v", ok, err)
	}
	cached, err := repo.GetAll(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	duplicate := repo.New()
	duplicate.Name = "taken"
	id, ok, err := repo.Save(ctx, duplicate)
	if err != nil || ok || id != nil {
		t.Fatalf("expected soft failure on unique violation, got id=%v ok=%v err=%v", id, ok, err)
	}

	again, err := repo.GetAll(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.count() != 1 {
		t.Errorf("expected the cached collection to survive, got %d fetches", gw.count())
	}
	if len(again) != 1 || again[0] != cached[0] {
		t.Error("expected the same cached collection")
	}
}

func TestSave_SurvivesBrokenBackend(t *testing.T) {
	ctx := context.Background()
	gw := &countingGateway{Gateway: gateway.NewMemoryGateway()}
	repo := newCachedRepository(t, gw, brokenBackend{})

	w := repo.New()
	w.Name = "a"
	if _, ok, err := repo.Save(ctx, w); err != nil || !ok {
		t.Fatalf("expected save to succeed despite failed invalidation, got ok=%v err=%v", ok, err)
	}

	all, err := repo.GetAll(ctx, 0)
	if err != nil {
		t.Fatalf("expected read to degrade to the gateway, got %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 record, got %d", len(all))
	}
}

func TestWidget_EndToEnd(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	if _, err := db.ExecContext(ctx, `INSERT INTO sqlite_sequence (name, seq) VALUES ('widgets', 41)`); err != nil {
		t.Fatalf("failed to seed sequence: %v", err)
	}

	gw := &countingGateway{Gateway: gateway.NewBunGateway(db)}
	repo := newCachedRepository(t, gw, newBackend(t))

	w := repo.New()
	id, ok, err := repo.Save(ctx, w)
	if err != nil || !ok {
		t.Fatalf("save failed: ok=%v err=%v", ok, err)
	}
	if id != 42 || w.ID != 42 {
		t.Fatalf("expected identity 42, got id=%v record=%d", id, w.ID)
	}

	first, err := repo.GetAll(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.count() != 1 {
		t.Errorf("expected one fetch, got %d", gw.count())
	}
	if len(first) != 1 || first[0].ID != 42 || first[0].Name != "" {
		t.Fatalf("expected the new widget, got %+v", first)
	}

	second, err := repo.GetAll(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.count() != 1 {
		t.Errorf("expected a cache hit, got %d fetches", gw.count())
	}
	if len(second) != 1 || second[0] != first[0] {
		t.Error("expected the same cached collection")
	}

	w.Name = "updated"
	if _, ok, err := repo.Save(ctx, w); err != nil || !ok {
		t.Fatalf("update failed: ok=%v err=%v", ok, err)
	}

	third, err := repo.GetAll(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.count() != 2 {
		t.Errorf("expected a reload after the update, got %d fetches", gw.count())
	}
	if len(third) != 1 || third[0].Name != "updated" {
		t.Errorf("expected the updated widget, got %+v", third)
	}
}
