package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidSnippetID indicates that a snippet identifier is empty or exceeds storage bounds.
	ErrInvalidSnippetID = errors.New("vault: invalid snippet id")
	// ErrEmptyContent indicates a draft without content.
	ErrEmptyContent = errors.New("vault: content is required")
	// ErrSnippetNotFound indicates that the user holds no snippet with the id.
	ErrSnippetNotFound = errors.New("vault: snippet not found")
	// ErrOrderMismatch indicates a reorder whose ids differ from the stored set.
	ErrOrderMismatch = errors.New("vault: ordered ids do not match stored snippets")
)

// SnippetRecord is the persisted form of a snippet.
type SnippetRecord struct {
	UserID           string `gorm:"column:user_id;primaryKey;size:190;not null;index:idx_snippets_user_order,priority:1"`
	SnippetID        string `gorm:"column:snippet_id;primaryKey;size:190;not null"`
	Title            string `gorm:"column:title;type:text;not null;default:''"`
	Content          string `gorm:"column:content;type:text;not null"`
	TagsJSON         string `gorm:"column:tags_json;type:text;not null;default:'[]'"`
	SortOrder        *int64 `gorm:"column:sort_order;index:idx_snippets_user_order,priority:2"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (SnippetRecord) TableName() string {
	return "snippets"
}

// Snippet is the service-level view of a stored snippet. Order is nil for
// rows that never received one.
type Snippet struct {
	ID      string
	Title   string
	Content string
	Tags    []string
	Order   *int64
}

// Draft carries the fields a client may set.
type Draft struct {
	Title   string
	Content string
	Tags    []string
}

func (d Draft) normalized() (Draft, error) {
	content := strings.TrimSpace(d.Content)
	if content == "" {
		return Draft{}, ErrEmptyContent
	}
	return Draft{
		Title:   strings.TrimSpace(d.Title),
		Content: content,
		Tags:    normalizeTags(d.Tags),
	}, nil
}

// NewSnippetID validates raw input.
func NewSnippetID(rawInput string) (string, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSnippetID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidSnippetID, maxIdentifierLength)
	}
	return trimmed, nil
}

func normalizeTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
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
		tags = append(tags, trimmed)
	}
	return tags
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// decodeTags tolerates malformed rows by returning no tags.
func decodeTags(raw string) []string {
	tags := []string{}
	if strings.TrimSpace(raw) == "" {
		return tags
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func (r SnippetRecord) toSnippet() Snippet {
	return Snippet{
		ID:      r.SnippetID,
		Title:   r.Title,
		Content: r.Content,
		Tags:    decodeTags(r.TagsJSON),
		Order:   r.SortOrder,
	}
}
