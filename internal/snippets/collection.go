package snippets

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Gateway is the remote service holding the authoritative snippet list.
type Gateway interface {
	List(ctx context.Context) ([]Record, error)
	Create(ctx context.Context, draft Draft) (Created, error)
	Update(ctx context.Context, id string, draft Draft) error
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, orderedIDs []string) error
}

// Created is the remote answer to a create call. Order is set only when the
// service echoes one.
type Created struct {
	ID    string
	Order *int
}

// CollectionConfig describes the dependencies of a Collection.
type CollectionConfig struct {
	Gateway Gateway
	Store   *Store
	Logger  *zap.Logger
}

// Collection ties the store, the filter state and the gateway together.
// Mutating operations run one at a time; each completes, including its
// network calls, before the next starts.
type Collection struct {
	opMu    sync.Mutex
	stateMu sync.RWMutex
	store   *Store
	gateway Gateway
	filter  FilterState
	logger  *zap.Logger
}

// NewCollection constructs a collection. A nil store gets a fresh one.
func NewCollection(cfg CollectionConfig) (*Collection, error) {
	if cfg.Gateway == nil {
		return nil, newOperationError(opNewCollection, reasonMissingGateway, errMissingGateway)
	}
	store := cfg.Store
	if store == nil {
		store = NewStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collection{
		store:   store,
		gateway: cfg.Gateway,
		logger:  logger,
	}, nil
}

// Load replaces the store with the gateway's current snapshot. On failure
// the store keeps its previous state.
func (c *Collection) Load(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.reload(ctx, opLoad)
}

func (c *Collection) reload(ctx context.Context, operation string) error {
	records, err := c.gateway.List(ctx)
	if err != nil {
		c.logger.Warn("snippet reload failed", zap.String("operation", operation), zap.Error(err))
		reason := reasonGatewayFailed
		if operation != opLoad {
			reason = reasonReloadFailed
		}
		return newOperationError(operation, reason, err)
	}
	c.store.ReplaceAll(records)
	c.logger.Debug("snippets loaded", zap.String("operation", operation), zap.Int("count", len(records)))
	return nil
}

// Add validates the draft, creates it remotely and appends it locally.
func (c *Collection) Add(ctx context.Context, draft Draft) (Snippet, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return Snippet{}, newOperationError(opAdd, reasonValidation, err)
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	created, err := c.gateway.Create(ctx, draft)
	if err != nil {
		c.logger.Warn("snippet create failed", zap.Error(err))
		return Snippet{}, newOperationError(opAdd, reasonGatewayFailed, err)
	}
	order := c.store.NextOrder()
	if created.Order != nil {
		order = *created.Order
	}
	snippet := newSnippet(created.ID, draft, order)
	c.store.Add(snippet)
	c.logger.Debug("snippet added", zap.String("snippet_id", created.ID), zap.Int("order", order))
	return snippet.clone(), nil
}

// Update validates the draft, sends it and applies it in place. The order is
// left unchanged.
func (c *Collection) Update(ctx context.Context, id string, draft Draft) error {
	snippetID, err := NewSnippetID(id)
	if err != nil {
		return newOperationError(opUpdate, reasonValidation, err)
	}
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return newOperationError(opUpdate, reasonValidation, err)
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	if _, ok := c.store.Get(snippetID.String()); !ok {
		return newOperationError(opUpdate, reasonNotFound, ErrUnknownSnippet)
	}
	if err := c.gateway.Update(ctx, snippetID.String(), draft); err != nil {
		c.logger.Warn("snippet update failed", zap.String("snippet_id", snippetID.String()), zap.Error(err))
		return newOperationError(opUpdate, reasonGatewayFailed, err)
	}
	c.store.Update(snippetID.String(), draft)
	return nil
}

// Delete removes a snippet remotely and locally. An id the store does not
// hold is a no-op and does not reach the gateway.
func (c *Collection) Delete(ctx context.Context, id string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if _, ok := c.store.Get(strings.TrimSpace(id)); !ok {
		c.logger.Debug("delete of unknown snippet ignored", zap.String("snippet_id", id))
		return nil
	}
	id = strings.TrimSpace(id)
	if err := c.gateway.Delete(ctx, id); err != nil {
		c.logger.Warn("snippet delete failed", zap.String("snippet_id", id), zap.Error(err))
		return newOperationError(opDelete, reasonGatewayFailed, err)
	}
	c.store.Remove(id)
	return nil
}

// Reorder applies a drag over the visible subset to the full ordering,
// persists it and reloads the authoritative snapshot whatever the outcome.
// A drag that changes nothing makes no network call.
func (c *Collection) Reorder(ctx context.Context, drag DragResult) error {
	if len(drag.After) == 0 {
		return newOperationError(opReorder, reasonValidation, ErrEmptyVisible)
	}
	if drag.Unchanged() {
		return nil
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	ordered := Reconcile(c.store.All(), drag.After)
	orderedIDs := IDs(ordered)
	if err := c.store.SetOrder(orderedIDs); err != nil {
		c.logger.Error("reorder rejected by store", zap.Error(err))
		return newOperationError(opReorder, reasonInconsistent, err)
	}

	var reorderErr error
	if err := c.gateway.Reorder(ctx, orderedIDs); err != nil {
		c.logger.Warn("snippet reorder failed", zap.Error(err))
		reorderErr = newOperationError(opReorder, reasonGatewayFailed, err)
	}
	reloadErr := c.reload(ctx, opReorder)
	return errors.Join(reorderErr, reloadErr)
}

// All returns the full ordered collection.
func (c *Collection) All() []Snippet {
	return c.store.All()
}

// Visible returns the collection filtered by the current filter state.
func (c *Collection) Visible() []Snippet {
	return Visible(c.store.All(), c.Filter())
}

// Get returns one snippet by id.
func (c *Collection) Get(id string) (Snippet, bool) {
	return c.store.Get(strings.TrimSpace(id))
}

// Tags returns every normalized tag in the collection.
func (c *Collection) Tags() []string {
	return c.store.Tags()
}

// Filter returns a copy of the current filter state.
func (c *Collection) Filter() FilterState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return FilterState{
		SelectedTags: append([]string(nil), c.filter.SelectedTags...),
		SearchTerm:   c.filter.SearchTerm,
	}
}

// SetSelectedTags replaces the tag selection.
func (c *Collection) SetSelectedTags(tags []string) {
	selected := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		key := NormalizeTag(tag)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		selected = append(selected, key)
	}
	c.stateMu.Lock()
	c.filter.SelectedTags = selected
	c.stateMu.Unlock()
}

// ToggleTag adds the tag to the selection, or removes it when already selected.
func (c *Collection) ToggleTag(tag string) {
	key := NormalizeTag(tag)
	if key == "" {
		return
	}
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	for index, selected := range c.filter.SelectedTags {
		if selected == key {
			c.filter.SelectedTags = append(c.filter.SelectedTags[:index:index], c.filter.SelectedTags[index+1:]...)
			return
		}
	}
	c.filter.SelectedTags = append(c.filter.SelectedTags, key)
}

// ResetTags clears the tag selection.
func (c *Collection) ResetTags() {
	c.stateMu.Lock()
	c.filter.SelectedTags = nil
	c.stateMu.Unlock()
}

// SetSearchTerm replaces the search term.
func (c *Collection) SetSearchTerm(term string) {
	c.stateMu.Lock()
	c.filter.SearchTerm = term
	c.stateMu.Unlock()
}

// ApplyView copies the selection held by the presentation layer.
func (c *Collection) ApplyView(view ViewState) {
	if view == nil {
		return
	}
	c.SetSelectedTags(view.SelectedTags())
	c.SetSearchTerm(view.SearchTerm())
}

// Reset drops all local state, as on logout. In-flight gateway calls are not
// cancelled.
func (c *Collection) Reset() {
	c.store.Clear()
	c.stateMu.Lock()
	c.filter = FilterState{}
	c.stateMu.Unlock()
}
