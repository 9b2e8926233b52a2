package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/snippyvault/internal/vault"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillSnippetSortOrder = "2026-09-30_backfill_snippet_sort_order"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillSnippetSortOrder, apply: backfillSnippetSortOrder},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Transaction(migration.apply); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillSnippetSortOrder gives rows stored without an order a position
// after the user's ordered rows, in creation order.
func backfillSnippetSortOrder(db *gorm.DB) error {
	var pending []vault.SnippetRecord
	if err := db.Where("sort_order IS NULL").
		Order("user_id ASC, created_at_s ASC, snippet_id ASC").
		Find(&pending).Error; err != nil {
		return err
	}

	next := make(map[string]int64)
	for _, record := range pending {
		position, ok := next[record.UserID]
		if !ok {
			var maxOrder *int64
			row := db.Model(&vault.SnippetRecord{}).
				Where("user_id = ? AND sort_order IS NOT NULL", record.UserID).
				Select("MAX(sort_order)").
				Row()
			if err := row.Scan(&maxOrder); err != nil {
				return err
			}
			if maxOrder != nil {
				position = *maxOrder + 1
			}
		}
		if err := db.Model(&vault.SnippetRecord{}).
			Where("user_id = ? AND snippet_id = ?", record.UserID, record.SnippetID).
			Update("sort_order", position).Error; err != nil {
			return err
		}
		next[record.UserID] = position + 1
	}
	return nil
}
