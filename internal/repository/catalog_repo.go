package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/StudyMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository 内容目录仓储
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository 创建仓储
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListItems 获取目录快照（按 ID 排序，保证结果稳定）
func (r *CatalogRepository) ListItems(ctx context.Context) ([]schema.ContentItem, error) {
	var items []schema.ContentItem
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("查询内容目录失败: %w", err)
	}
	return items, nil
}

// UpsertItems 批量导入或更新目录条目（供外部协作方/CLI 使用）
func (r *CatalogRepository) UpsertItems(ctx context.Context, items []schema.ContentItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range items {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"title", "category", "path", "difficulty", "item_type"}),
			}).Create(&items[i]).Error; err != nil {
				return fmt.Errorf("导入内容目录失败: %w", err)
			}
		}
		return nil
	})
}

// Count 统计目录条目数量
func (r *CatalogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&schema.ContentItem{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计内容目录失败: %w", err)
	}
	return count, nil
}
