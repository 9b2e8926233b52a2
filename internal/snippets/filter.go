package snippets

import "strings"

// FilterState is the transient tag and search selection. An empty state
// matches everything.
type FilterState struct {
	SelectedTags []string
	SearchTerm   string
}

// ViewState is implemented by whatever presents the collection, so the
// engine can read the current selection without knowing the toolkit.
type ViewState interface {
	SelectedTags() []string
	SearchTerm() string
}

// Visible projects the ordered snippet sequence onto the filter state. A
// snippet must match any selected tag and contain the search term in its
// title, content or one of its tags. Relative order is preserved.
func Visible(all []Snippet, state FilterState) []Snippet {
	selected := make(map[string]struct{}, len(state.SelectedTags))
	for _, tag := range state.SelectedTags {
		if key := NormalizeTag(tag); key != "" {
			selected[key] = struct{}{}
		}
	}
	term := strings.ToLower(strings.TrimSpace(state.SearchTerm))

	visible := make([]Snippet, 0, len(all))
	for _, snippet := range all {
		if len(selected) > 0 && !matchesAnyTag(snippet, selected) {
			continue
		}
		if term != "" && !matchesSearch(snippet, term) {
			continue
		}
		visible = append(visible, snippet)
	}
	return visible
}

func matchesAnyTag(snippet Snippet, selected map[string]struct{}) bool {
	for _, key := range snippet.TagKeys() {
		if _, ok := selected[key]; ok {
			return true
		}
	}
	return false
}

func matchesSearch(snippet Snippet, term string) bool {
	if strings.Contains(strings.ToLower(snippet.Title), term) {
		return true
	}
	if strings.Contains(strings.ToLower(snippet.Content), term) {
		return true
	}
	for _, key := range snippet.TagKeys() {
		if strings.Contains(key, term) {
			return true
		}
	}
	return false
}

// IDs returns the identifiers of the snippets, in order.
func IDs(items []Snippet) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
