package model

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-model-cache/gateway"
)

type widget struct {
	Extras
	ID     int
	Name   string
	Tags   []string
	Note   *string
	Active bool
}

func (w *widget) Bind() map[string]any {
	return map[string]any{
		"id":     &w.ID,
		"name":   &w.Name,
		"tags":   &w.Tags,
		"note":   &w.Note,
		"active": &w.Active,
	}
}

func newWidget() *widget { return &widget{} }

var widgetSchema = MustSchema("Widget", []Field{
	{Name: "id", Value: TypeInt},
	{Name: "name", Value: TypeString, Default: ""},
	{Name: "tags", Storage: TypeJSON, Value: TypeArray, Default: []any{}},
	{Name: "note", Value: TypeString},
	{Name: "active", Storage: TypeInt, Value: TypeBool, Default: true},
})

// recordingGateway counts calls and can fail on demand.
type recordingGateway struct {
	gateway.Gateway

	mu       sync.Mutex
	fetches  int
	writes   int
	deletes  int
	writeErr error
	fetchErr error
}

func newRecordingGateway() *recordingGateway {
	return &recordingGateway{Gateway: gateway.NewMemoryGateway()}
}

func (g *recordingGateway) Fetch(ctx context.Context, table string, q gateway.Query) ([]gateway.Row, error) {
	g.mu.Lock()
	g.fetches++
	err := g.fetchErr
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return g.Gateway.Fetch(ctx, table, q)
}

func (g *recordingGateway) UpdateOrInsert(ctx context.Context, table, identity string, where []gateway.Filter, values gateway.Row) (any, bool, error) {
	g.mu.Lock()
	g.writes++
	err := g.writeErr
	g.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return g.Gateway.UpdateOrInsert(ctx, table, identity, where, values)
}

func (g *recordingGateway) Delete(ctx context.Context, table string, where ...gateway.Filter) (int64, error) {
	g.mu.Lock()
	g.deletes++
	err := g.writeErr
	g.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return g.Gateway.Delete(ctx, table, where...)
}

func (g *recordingGateway) fetchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetches
}

// actionRecorder observes every action.
type actionRecorder struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (r *actionRecorder) record(action string, w *widget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, action+":"+w.Name)
	return r.err
}

func (r *actionRecorder) Created(_ context.Context, w *widget) error { return r.record("created", w) }
func (r *actionRecorder) Updated(_ context.Context, w *widget) error { return r.record("updated", w) }
func (r *actionRecorder) Deleted(_ context.Context, w *widget) error { return r.record("deleted", w) }

func (r *actionRecorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

var errBoom = errors.New("boom")
