package snippets

import (
	"reflect"
	"testing"
)

func filterFixture(t *testing.T) []Snippet {
	t.Helper()
	store := newLoadedStore(t,
		Record{ID: "a", Title: stringPointer("Deploy script"), Content: "kubectl apply -f .", Tags: []string{"K8s", "ops"}, Order: intPointer(0)},
		Record{ID: "b", Title: stringPointer("Greeting"), Content: "Hello World", Tags: []string{"demo"}, Order: intPointer(1)},
		Record{ID: "c", Content: "SELECT * FROM users", Tags: []string{"sql", "Ops"}, Order: intPointer(2)},
		Record{ID: "d", Title: stringPointer("untagged"), Content: "plain", Order: intPointer(3)},
	)
	return store.All()
}

func TestVisibleWithEmptyFilterReturnsAll(t *testing.T) {
	all := filterFixture(t)
	visible := Visible(all, FilterState{SearchTerm: "   "})
	if !reflect.DeepEqual(IDs(visible), IDs(all)) {
		t.Fatalf("expected all snippets, got %v", IDs(visible))
	}
}

func TestVisibleTagAndSearchFilters(t *testing.T) {
	all := filterFixture(t)

	tests := []struct {
		name  string
		state FilterState
		want  []string
	}{
		{name: "single-tag", state: FilterState{SelectedTags: []string{"ops"}}, want: []string{"a", "c"}},
		{name: "tag-case-insensitive", state: FilterState{SelectedTags: []string{"OPS"}}, want: []string{"a", "c"}},
		{name: "tags-or", state: FilterState{SelectedTags: []string{"demo", "sql"}}, want: []string{"b", "c"}},
		{name: "unknown-tag", state: FilterState{SelectedTags: []string{"nope"}}, want: nil},
		{name: "search-title", state: FilterState{SearchTerm: "deploy"}, want: []string{"a"}},
		{name: "search-content", state: FilterState{SearchTerm: "  WORLD "}, want: []string{"b"}},
		{name: "search-tag-substring", state: FilterState{SearchTerm: "k8"}, want: []string{"a"}},
		{name: "search-spans-fields", state: FilterState{SearchTerm: "o"}, want: []string{"a", "b", "c"}},
		{name: "tag-and-search", state: FilterState{SelectedTags: []string{"ops"}, SearchTerm: "select"}, want: []string{"c"}},
		{name: "tag-and-search-no-match", state: FilterState{SelectedTags: []string{"demo"}, SearchTerm: "select"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertIDs(t, Visible(all, tt.state), tt.want...)
		})
	}
}

func TestVisibleIsSubsequenceOfAll(t *testing.T) {
	all := filterFixture(t)
	visible := Visible(all, FilterState{SearchTerm: "o"})

	position := 0
	for _, snippet := range visible {
		for position < len(all) && all[position].ID != snippet.ID {
			position++
		}
		if position == len(all) {
			t.Fatalf("visible order %v is not a subsequence of %v", IDs(visible), IDs(all))
		}
		position++
	}
}

func TestVisibleTagFilterIsExact(t *testing.T) {
	all := filterFixture(t)
	selected := map[string]struct{}{"ops": {}, "demo": {}}
	visible := Visible(all, FilterState{SelectedTags: []string{"ops", "demo"}})

	included := make(map[string]bool, len(visible))
	for _, snippet := range visible {
		included[snippet.ID] = true
	}
	for _, snippet := range all {
		matches := false
		for _, key := range snippet.TagKeys() {
			if _, ok := selected[key]; ok {
				matches = true
			}
		}
		if matches != included[snippet.ID] {
			t.Fatalf("snippet %s: tag match %v but included %v", snippet.ID, matches, included[snippet.ID])
		}
	}
}
