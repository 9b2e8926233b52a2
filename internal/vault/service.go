package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingUserID     = errors.New("user identifier is required")
	noOpLogger           = zap.NewNop()
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew      = "vault.service.new"
	opListSnippets    = "vault.list_snippets"
	opCreateSnippet   = "vault.create_snippet"
	opUpdateSnippet   = "vault.update_snippet"
	opDeleteSnippet   = "vault.delete_snippet"
	opReorderSnippets = "vault.reorder_snippets"

	queryUser        = "user_id = ?"
	queryUserSnippet = "user_id = ? AND snippet_id = ?"

	reasonMissingDatabase = "missing_database"
	reasonMissingUserID   = "missing_user_id"
	reasonInvalidDraft    = "invalid_draft"
	reasonInvalidID       = "invalid_snippet_id"
	reasonNotFound        = "not_found"
	reasonOrderMismatch   = "order_mismatch"
	reasonQueryFailed     = "query_failed"
	reasonWriteFailed     = "write_failed"
	reasonIDFailed        = "id_generation_failed"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service stores snippets per user.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// List returns the user's snippets by ascending order. Rows without an order
// come last, oldest first.
func (s *Service) List(ctx context.Context, userID string) ([]Snippet, error) {
	if err := s.precheck(opListSnippets, userID); err != nil {
		return nil, err
	}

	var records []SnippetRecord
	if err := s.db.WithContext(ctx).
		Where(queryUser, userID).
		Order("sort_order IS NULL, sort_order ASC, created_at_s ASC, snippet_id ASC").
		Find(&records).Error; err != nil {
		s.logError(opListSnippets, reasonQueryFailed, err, zap.String("user_id", userID))
		return nil, newServiceError(opListSnippets, reasonQueryFailed, err)
	}

	result := make([]Snippet, 0, len(records))
	for _, record := range records {
		result = append(result, record.toSnippet())
	}
	return result, nil
}

// Create stores a draft after every existing snippet of the user.
func (s *Service) Create(ctx context.Context, userID string, draft Draft) (Snippet, error) {
	if err := s.precheck(opCreateSnippet, userID); err != nil {
		return Snippet{}, err
	}
	normalized, err := draft.normalized()
	if err != nil {
		return Snippet{}, newServiceError(opCreateSnippet, reasonInvalidDraft, err)
	}
	tagsJSON, err := encodeTags(normalized.Tags)
	if err != nil {
		return Snippet{}, newServiceError(opCreateSnippet, reasonInvalidDraft, err)
	}
	snippetID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateSnippet, reasonIDFailed, err, zap.String("user_id", userID))
		return Snippet{}, newServiceError(opCreateSnippet, reasonIDFailed, err)
	}

	var created SnippetRecord
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrder sql.NullInt64
		if err := tx.Model(&SnippetRecord{}).
			Where(queryUser, userID).
			Select("MAX(sort_order)").
			Scan(&maxOrder).Error; err != nil {
			s.logError(opCreateSnippet, reasonQueryFailed, err, zap.String("user_id", userID))
			return newServiceError(opCreateSnippet, reasonQueryFailed, err)
		}
		next := int64(0)
		if maxOrder.Valid {
			next = maxOrder.Int64 + 1
		}

		now := s.clock().UTC().Unix()
		created = SnippetRecord{
			UserID:           userID,
			SnippetID:        snippetID,
			Title:            normalized.Title,
			Content:          normalized.Content,
			TagsJSON:         tagsJSON,
			SortOrder:        &next,
			CreatedAtSeconds: now,
			UpdatedAtSeconds: now,
		}
		if err := tx.Create(&created).Error; err != nil {
			s.logError(opCreateSnippet, reasonWriteFailed, err,
				zap.String("user_id", userID),
				zap.String("snippet_id", snippetID))
			return newServiceError(opCreateSnippet, reasonWriteFailed, err)
		}
		return nil
	})
	if txErr != nil {
		return Snippet{}, txErr
	}

	s.logger.Info("snippet created", zap.String("user_id", userID), zap.String("snippet_id", snippetID))
	return created.toSnippet(), nil
}

// Update replaces title, content and tags. The stored order is kept.
func (s *Service) Update(ctx context.Context, userID, rawSnippetID string, draft Draft) (Snippet, error) {
	if err := s.precheck(opUpdateSnippet, userID); err != nil {
		return Snippet{}, err
	}
	snippetID, err := NewSnippetID(rawSnippetID)
	if err != nil {
		return Snippet{}, newServiceError(opUpdateSnippet, reasonInvalidID, err)
	}
	normalized, err := draft.normalized()
	if err != nil {
		return Snippet{}, newServiceError(opUpdateSnippet, reasonInvalidDraft, err)
	}
	tagsJSON, err := encodeTags(normalized.Tags)
	if err != nil {
		return Snippet{}, newServiceError(opUpdateSnippet, reasonInvalidDraft, err)
	}

	var stored SnippetRecord
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where(queryUserSnippet, userID, snippetID).Take(&stored).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opUpdateSnippet, reasonNotFound, ErrSnippetNotFound)
		}
		if err != nil {
			s.logError(opUpdateSnippet, reasonQueryFailed, err, zap.String("user_id", userID))
			return newServiceError(opUpdateSnippet, reasonQueryFailed, err)
		}

		stored.Title = normalized.Title
		stored.Content = normalized.Content
		stored.TagsJSON = tagsJSON
		stored.UpdatedAtSeconds = s.clock().UTC().Unix()
		if err := tx.Save(&stored).Error; err != nil {
			s.logError(opUpdateSnippet, reasonWriteFailed, err,
				zap.String("user_id", userID),
				zap.String("snippet_id", snippetID))
			return newServiceError(opUpdateSnippet, reasonWriteFailed, err)
		}
		return nil
	})
	if txErr != nil {
		return Snippet{}, txErr
	}
	return stored.toSnippet(), nil
}

// Delete removes a snippet. Remaining orders are not compacted.
func (s *Service) Delete(ctx context.Context, userID, rawSnippetID string) error {
	if err := s.precheck(opDeleteSnippet, userID); err != nil {
		return err
	}
	snippetID, err := NewSnippetID(rawSnippetID)
	if err != nil {
		return newServiceError(opDeleteSnippet, reasonInvalidID, err)
	}

	result := s.db.WithContext(ctx).
		Where(queryUserSnippet, userID, snippetID).
		Delete(&SnippetRecord{})
	if result.Error != nil {
		s.logError(opDeleteSnippet, reasonWriteFailed, result.Error,
			zap.String("user_id", userID),
			zap.String("snippet_id", snippetID))
		return newServiceError(opDeleteSnippet, reasonWriteFailed, result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opDeleteSnippet, reasonNotFound, ErrSnippetNotFound)
	}
	return nil
}

// Reorder assigns sort_order = index along orderedIDs. The ids must be
// exactly the user's stored snippets.
func (s *Service) Reorder(ctx context.Context, userID string, orderedIDs []string) error {
	if err := s.precheck(opReorderSnippets, userID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var storedIDs []string
		if err := tx.Model(&SnippetRecord{}).
			Where(queryUser, userID).
			Pluck("snippet_id", &storedIDs).Error; err != nil {
			s.logError(opReorderSnippets, reasonQueryFailed, err, zap.String("user_id", userID))
			return newServiceError(opReorderSnippets, reasonQueryFailed, err)
		}
		if err := sameMembership(storedIDs, orderedIDs); err != nil {
			s.logger.Warn("reorder rejected",
				zap.String("user_id", userID),
				zap.Int("stored", len(storedIDs)),
				zap.Int("submitted", len(orderedIDs)),
				zap.Error(err))
			return newServiceError(opReorderSnippets, reasonOrderMismatch, err)
		}

		now := s.clock().UTC().Unix()
		for index, snippetID := range orderedIDs {
			if err := tx.Model(&SnippetRecord{}).
				Where(queryUserSnippet, userID, snippetID).
				Updates(map[string]any{"sort_order": int64(index), "updated_at_s": now}).Error; err != nil {
				s.logError(opReorderSnippets, reasonWriteFailed, err,
					zap.String("user_id", userID),
					zap.String("snippet_id", snippetID))
				return newServiceError(opReorderSnippets, reasonWriteFailed, err)
			}
		}
		return nil
	})
}

func sameMembership(stored, submitted []string) error {
	if len(stored) != len(submitted) {
		return fmt.Errorf("%w: %d submitted for %d stored", ErrOrderMismatch, len(submitted), len(stored))
	}
	remaining := make(map[string]struct{}, len(stored))
	for _, id := range stored {
		remaining[id] = struct{}{}
	}
	for _, id := range submitted {
		if _, ok := remaining[id]; !ok {
			return fmt.Errorf("%w: unexpected id %q", ErrOrderMismatch, id)
		}
		delete(remaining, id)
	}
	return nil
}

func (s *Service) precheck(operation, userID string) error {
	if s.db == nil {
		s.logError(operation, reasonMissingDatabase, errMissingDatabase)
		return newServiceError(operation, reasonMissingDatabase, errMissingDatabase)
	}
	if userID == "" {
		s.logError(operation, reasonMissingUserID, errMissingUserID)
		return newServiceError(operation, reasonMissingUserID, errMissingUserID)
	}
	return nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("vault service error", attrs...)
}
