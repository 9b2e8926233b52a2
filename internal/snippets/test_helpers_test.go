package snippets

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func intPointer(value int) *int {
	return &value
}

func stringPointer(value string) *string {
	return &value
}

func record(id string, order int, tags ...string) Record {
	return Record{
		ID:      id,
		Title:   stringPointer("title " + id),
		Content: "content " + id,
		Tags:    tags,
		Order:   intPointer(order),
	}
}

func newLoadedStore(t *testing.T, records ...Record) *Store {
	t.Helper()
	store := NewStore()
	store.ReplaceAll(records)
	return store
}

func assertIDs(t *testing.T, got []Snippet, want ...string) {
	t.Helper()
	gotIDs := IDs(got)
	if len(want) == 0 && len(gotIDs) == 0 {
		return
	}
	if !reflect.DeepEqual(gotIDs, want) {
		t.Fatalf("unexpected ids: got %v want %v", gotIDs, want)
	}
}

func assertOrders(t *testing.T, got []Snippet, want ...int) {
	t.Helper()
	orders := make([]int, 0, len(got))
	for _, snippet := range got {
		orders = append(orders, snippet.Order)
	}
	if !reflect.DeepEqual(orders, want) {
		t.Fatalf("unexpected orders: got %v want %v", orders, want)
	}
}

// fakeGateway keeps an in-memory remote snapshot and records every call.
type fakeGateway struct {
	records    []Record
	nextID     int
	calls      []string
	listErr    error
	createErr  error
	updateErr  error
	deleteErr  error
	reorderErr error
	reordered  [][]string
	// ignoreReorder keeps the remote order unchanged on reorder, to check
	// that the trailing reload overwrites the optimistic local order.
	ignoreReorder bool
}

func (g *fakeGateway) List(ctx context.Context) ([]Record, error) {
	g.calls = append(g.calls, "list")
	if g.listErr != nil {
		return nil, g.listErr
	}
	copied := make([]Record, len(g.records))
	copy(copied, g.records)
	return copied, nil
}

func (g *fakeGateway) Create(ctx context.Context, draft Draft) (Created, error) {
	g.calls = append(g.calls, "create")
	if g.createErr != nil {
		return Created{}, g.createErr
	}
	g.nextID++
	id := fmt.Sprintf("new-%d", g.nextID)
	g.records = append(g.records, Record{
		ID:      id,
		Title:   stringPointer(draft.Title),
		Content: draft.Content,
		Tags:    draft.Tags,
		Order:   intPointer(len(g.records)),
	})
	return Created{ID: id}, nil
}

func (g *fakeGateway) Update(ctx context.Context, id string, draft Draft) error {
	g.calls = append(g.calls, "update")
	if g.updateErr != nil {
		return g.updateErr
	}
	for index := range g.records {
		if g.records[index].ID == id {
			g.records[index].Title = stringPointer(draft.Title)
			g.records[index].Content = draft.Content
			g.records[index].Tags = draft.Tags
			return nil
		}
	}
	return errors.New("remote: not found")
}

func (g *fakeGateway) Delete(ctx context.Context, id string) error {
	g.calls = append(g.calls, "delete")
	if g.deleteErr != nil {
		return g.deleteErr
	}
	for index := range g.records {
		if g.records[index].ID == id {
			g.records = append(g.records[:index], g.records[index+1:]...)
			return nil
		}
	}
	return nil
}

func (g *fakeGateway) Reorder(ctx context.Context, orderedIDs []string) error {
	g.calls = append(g.calls, "reorder")
	g.reordered = append(g.reordered, append([]string(nil), orderedIDs...))
	if g.reorderErr != nil {
		return g.reorderErr
	}
	if g.ignoreReorder {
		return nil
	}
	positions := make(map[string]int, len(orderedIDs))
	for index, id := range orderedIDs {
		positions[id] = index
	}
	for index := range g.records {
		g.records[index].Order = intPointer(positions[g.records[index].ID])
	}
	return nil
}

func newTestCollection(t *testing.T, gateway *fakeGateway) *Collection {
	t.Helper()
	collection, err := NewCollection(CollectionConfig{Gateway: gateway})
	if err != nil {
		t.Fatalf("failed to build collection: %v", err)
	}
	if err := collection.Load(context.Background()); err != nil {
		t.Fatalf("failed to load collection: %v", err)
	}
	gateway.calls = nil
	return collection
}
