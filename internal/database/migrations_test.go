package database

import (
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/snippyvault/internal/vault"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func int64Pointer(value int64) *int64 {
	return &value
}

func TestApplyMigrationsBackfillsSortOrder(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&vault.SnippetRecord{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	rows := []vault.SnippetRecord{
		{UserID: "alice", SnippetID: "ordered", Content: "x", TagsJSON: "[]", SortOrder: int64Pointer(4), CreatedAtSeconds: 30},
		{UserID: "alice", SnippetID: "late", Content: "x", TagsJSON: "[]", CreatedAtSeconds: 20},
		{UserID: "alice", SnippetID: "early", Content: "x", TagsJSON: "[]", CreatedAtSeconds: 10},
		{UserID: "bob", SnippetID: "only", Content: "x", TagsJSON: "[]", CreatedAtSeconds: 5},
	}
	if err := database.Create(&rows).Error; err != nil {
		testContext.Fatalf("failed to insert rows: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	expected := map[string]int64{"ordered": 4, "early": 5, "late": 6, "only": 0}
	for snippetID, want := range expected {
		var stored vault.SnippetRecord
		if err := database.Where("snippet_id = ?", snippetID).Take(&stored).Error; err != nil {
			testContext.Fatalf("failed to reload %s: %v", snippetID, err)
		}
		if stored.SortOrder == nil || *stored.SortOrder != want {
			testContext.Fatalf("snippet %s: expected order %d, got %v", snippetID, want, stored.SortOrder)
		}
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationBackfillSnippetSortOrder).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("reapplying migrations should be a no-op: %v", err)
	}
}

func TestOpenSQLiteRequiresPath(testContext *testing.T) {
	if _, err := OpenSQLite("", zap.NewNop()); err == nil {
		testContext.Fatalf("expected error for empty path")
	}
}
