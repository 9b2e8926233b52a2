package snippets

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidSnippetID indicates that a snippet identifier is empty or exceeds storage bounds.
	ErrInvalidSnippetID = errors.New("snippets: invalid snippet id")
	// ErrEmptyContent indicates that a draft was submitted without content.
	ErrEmptyContent = errors.New("snippets: content is required")
)

// SnippetID represents a validated snippet identifier.
type SnippetID string

// NewSnippetID validates raw input and returns a SnippetID.
func NewSnippetID(rawInput string) (SnippetID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSnippetID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidSnippetID, maxIdentifierLength)
	}
	return SnippetID(trimmed), nil
}

// String returns the underlying string identifier.
func (id SnippetID) String() string {
	return string(id)
}

// Snippet is one entry of a user's collection.
type Snippet struct {
	ID      string
	Title   string
	Content string
	// Tags keeps the display casing; matching goes through TagKeys.
	Tags    []string
	Order   int

	tagKeys []string
}

// TagKeys returns the lower-cased tag set used for matching.
func (s Snippet) TagKeys() []string {
	if s.tagKeys == nil && len(s.Tags) > 0 {
		_, keys := normalizeTags(s.Tags)
		return keys
	}
	return append([]string(nil), s.tagKeys...)
}

// HasTag reports whether the snippet carries the tag, ignoring case.
func (s Snippet) HasTag(tag string) bool {
	key := NormalizeTag(tag)
	for _, candidate := range s.TagKeys() {
		if candidate == key {
			return true
		}
	}
	return false
}

// Record converts the snippet back into its wire form.
func (s Snippet) Record() Record {
	title := s.Title
	order := s.Order
	return Record{
		ID:      s.ID,
		Title:   &title,
		Content: s.Content,
		Tags:    append([]string(nil), s.Tags...),
		Order:   &order,
	}
}

func (s Snippet) clone() Snippet {
	copied := s
	copied.Tags = append([]string(nil), s.Tags...)
	copied.tagKeys = append([]string(nil), s.tagKeys...)
	return copied
}

// Record is a snippet as delivered by the remote service. Title and Order
// may be absent.
type Record struct {
	ID      string   `json:"id"`
	Title   *string  `json:"title,omitempty"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	Order   *int     `json:"order,omitempty"`
}

// Draft carries the user-editable fields of a snippet.
type Draft struct {
	Title   string
	Content string
	Tags    []string
}

// Normalize trims the draft and collapses duplicate tags.
func (d Draft) Normalize() Draft {
	tags, _ := normalizeTags(d.Tags)
	return Draft{
		Title:   strings.TrimSpace(d.Title),
		Content: strings.TrimSpace(d.Content),
		Tags:    tags,
	}
}

// Validate rejects drafts that must never reach the store or the gateway.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// NormalizeTag returns the matching form of a tag.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// normalizeTags drops blank tags and collapses case-insensitive duplicates,
// keeping the first display form seen.
func normalizeTags(raw []string) ([]string, []string) {
	display := make([]string, 0, len(raw))
	keys := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		trimmed := strings.TrimSpace(tag)
		key := strings.ToLower(trimmed)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		display = append(display, trimmed)
		keys = append(keys, key)
	}
	return display, keys
}

func newSnippet(id string, draft Draft, order int) Snippet {
	display, keys := normalizeTags(draft.Tags)
	return Snippet{
		ID:      id,
		Title:   draft.Title,
		Content: draft.Content,
		Tags:    display,
		Order:   order,
		tagKeys: keys,
	}
}
