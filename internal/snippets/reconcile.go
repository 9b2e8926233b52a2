package snippets

import "fmt"

// DragResult is the visible id order observed before and after a drag.
type DragResult struct {
	Before []string
	After  []string
}

// Unchanged reports whether the drag left the visible order as it was.
func (d DragResult) Unchanged() bool {
	if len(d.Before) != len(d.After) {
		return false
	}
	for index := range d.Before {
		if d.Before[index] != d.After[index] {
			return false
		}
	}
	return true
}

// Reconcile merges a reordered visible subset back into the full ordering.
// Ids from visibleAfter come first in that order; unknown or repeated ids are
// skipped. Every snippet not mentioned keeps its relative position and is
// placed after the visible ones. The returned snippets carry dense orders
// 0..n-1.
func Reconcile(all []Snippet, visibleAfter []string) []Snippet {
	lookup := make(map[string]Snippet, len(all))
	for _, snippet := range all {
		lookup[snippet.ID] = snippet
	}

	result := make([]Snippet, 0, len(all))
	for _, id := range visibleAfter {
		snippet, ok := lookup[id]
		if !ok {
			continue
		}
		result = append(result, snippet)
		delete(lookup, id)
	}
	for _, snippet := range all {
		if _, hidden := lookup[snippet.ID]; hidden {
			result = append(result, snippet)
		}
	}

	for index := range result {
		result[index].Order = index
	}
	return result
}

// MoveID moves the entry at index from to index to, shifting the entries in
// between, and returns the new sequence.
func MoveID(ids []string, from, to int) ([]string, error) {
	if from < 0 || from >= len(ids) {
		return nil, fmt.Errorf("snippets: source position %d out of range [0,%d)", from, len(ids))
	}
	if to < 0 || to >= len(ids) {
		return nil, fmt.Errorf("snippets: target position %d out of range [0,%d)", to, len(ids))
	}
	moved := make([]string, 0, len(ids))
	moved = append(moved, ids[:from]...)
	moved = append(moved, ids[from+1:]...)
	moved = append(moved[:to], append([]string{ids[from]}, moved[to:]...)...)
	return moved, nil
}
