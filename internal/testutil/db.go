package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/yuqie6/StudyMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB 打开内存 SQLite 并自动迁移所有表
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	// :memory: 每个连接都是独立的库，限制为单连接保证所有查询看到同一份数据
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&schema.SchemaMeta{},
		&schema.ActivityEvent{},
		&schema.SkillProgress{},
		&schema.BadgeDefinition{},
		&schema.AwardedBadge{},
		&schema.ContentItem{},
		&schema.Recommendation{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}
