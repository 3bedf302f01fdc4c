package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/StudyMirror/internal/schema"
	"gorm.io/gorm"
)

// RecommendationRepository 推荐仓储
type RecommendationRepository struct {
	db *gorm.DB
}

// NewRecommendationRepository 创建仓储
func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// ReplaceAll 在单个事务内删除旧推荐并写入新推荐；读者不会看到空集或半写入状态
func (r *RecommendationRepository) ReplaceAll(ctx context.Context, userID string, recs []schema.Recommendation) error {
	rows := make([]schema.Recommendation, len(recs))
	for i, rec := range recs {
		rec.ID = 0
		rec.UserID = userID
		rows[i] = rec
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&schema.Recommendation{}).Error; err != nil {
			return fmt.Errorf("删除旧推荐失败: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("写入推荐失败: %w", err)
		}
		return nil
	})
}

// ListByUser 获取用户推荐（相关度降序）；limit<=0 表示不限制
func (r *RecommendationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]schema.Recommendation, error) {
	var recs []schema.Recommendation
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("relevance_score DESC, item_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("查询推荐失败: %w", err)
	}
	return recs, nil
}

// MarkViewed 标记推荐已查看；记录不存在返回 false
func (r *RecommendationRepository) MarkViewed(ctx context.Context, userID, itemID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&schema.Recommendation{}).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Update("is_viewed", true)
	if res.Error != nil {
		return false, fmt.Errorf("标记推荐已查看失败: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
