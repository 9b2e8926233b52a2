package snippets

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrOrderMismatch indicates that an ordering does not cover exactly the ids held by the store.
var ErrOrderMismatch = errors.New("snippets: ordering does not match store membership")

// Store holds the authoritative snippet list for the current user.
type Store struct {
	mu    sync.RWMutex
	items map[string]Snippet
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{items: make(map[string]Snippet)}
}

// ReplaceAll discards the current state and loads the snapshot. Records
// without an order take their arrival index; records without a title get an
// empty one. A later record with a duplicate id replaces the earlier one.
func (s *Store) ReplaceAll(records []Record) {
	items := make(map[string]Snippet, len(records))
	for index, record := range records {
		order := index
		if record.Order != nil {
			order = *record.Order
		}
		title := ""
		if record.Title != nil {
			title = *record.Title
		}
		items[record.ID] = newSnippet(record.ID, Draft{
			Title:   title,
			Content: record.Content,
			Tags:    record.Tags,
		}, order)
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// Add inserts a snippet confirmed by the remote service.
func (s *Store) Add(snippet Snippet) {
	stored := newSnippet(snippet.ID, Draft{
		Title:   snippet.Title,
		Content: snippet.Content,
		Tags:    snippet.Tags,
	}, snippet.Order)

	s.mu.Lock()
	s.items[stored.ID] = stored
	s.mu.Unlock()
}

// NextOrder returns an order value placing a new snippet after every existing one.
func (s *Store) NextOrder() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next := 0
	for _, item := range s.items {
		if item.Order+1 > next {
			next = item.Order + 1
		}
	}
	return next
}

// Update replaces the editable fields of a snippet, leaving its order alone.
// It reports false when the id is unknown.
func (s *Store) Update(id string, draft Draft) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[id]
	if !ok {
		return false
	}
	s.items[id] = newSnippet(id, draft, existing.Order)
	return true
}

// Remove deletes a snippet. It reports false when the id is unknown, which
// callers treat as a no-op. Remaining orders are not compacted.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// SetOrder assigns order = index along ids. The sequence must contain every
// id in the store exactly once; otherwise the store is left untouched and
// ErrOrderMismatch is returned.
func (s *Store) SetOrder(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) != len(s.items) {
		return fmt.Errorf("%w: got %d ids for %d snippets", ErrOrderMismatch, len(ids), len(s.items))
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.items[id]; !ok {
			return fmt.Errorf("%w: unknown id %q", ErrOrderMismatch, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrOrderMismatch, id)
		}
		seen[id] = struct{}{}
	}

	for index, id := range ids {
		item := s.items[id]
		item.Order = index
		s.items[id] = item
	}
	return nil
}

// Get returns a copy of the snippet with the given id.
func (s *Store) Get(id string) (Snippet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return Snippet{}, false
	}
	return item.clone(), true
}

// Len returns the number of snippets held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// All returns a fresh copy of every snippet sorted by order, then id.
func (s *Store) All() []Snippet {
	s.mu.RLock()
	result := make([]Snippet, 0, len(s.items))
	for _, item := range s.items {
		result = append(result, item.clone())
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Tags returns every normalized tag in use, sorted.
func (s *Store) Tags() []string {
	s.mu.RLock()
	unique := make(map[string]struct{})
	for _, item := range s.items {
		for _, key := range item.tagKeys {
			unique[key] = struct{}{}
		}
	}
	s.mu.RUnlock()

	tags := make([]string, 0, len(unique))
	for tag := range unique {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Clear drops every snippet.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = make(map[string]Snippet)
	s.mu.Unlock()
}
