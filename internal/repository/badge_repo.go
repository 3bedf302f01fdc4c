package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/StudyMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BadgeRepository 徽章仓储（定义 + 已颁发）
type BadgeRepository struct {
	db *gorm.DB
}

// NewBadgeRepository 创建仓储
func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// SyncDefinitions 幂等写入徽章定义，返回新增数量
func (r *BadgeRepository) SyncDefinitions(ctx context.Context, defs []schema.BadgeDefinition) (int64, error) {
	if len(defs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&defs)
	if res.Error != nil {
		return 0, fmt.Errorf("写入徽章定义失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListDefinitions 按徽章 ID 获取阈值不超过 maxThreshold 的定义。
// 按 ID 而非 skill_name 查询：同一 skill-key 的不同写法共用一组定义。
func (r *BadgeRepository) ListDefinitions(ctx context.Context, ids []string, maxThreshold int) ([]schema.BadgeDefinition, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var defs []schema.BadgeDefinition
	err := r.db.WithContext(ctx).
		Where("id IN ? AND threshold <= ?", ids, maxThreshold).
		Order("threshold ASC").
		Find(&defs).Error
	if err != nil {
		return nil, fmt.Errorf("查询徽章定义失败: %w", err)
	}
	return defs, nil
}

// Award 颁发徽章；唯一约束冲突（已颁发/并发竞争失败）返回 false 且不视为错误
func (r *BadgeRepository) Award(ctx context.Context, badge *schema.AwardedBadge) (bool, error) {
	if badge == nil {
		return false, fmt.Errorf("badge is nil")
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(badge)
	if res.Error != nil {
		return false, fmt.Errorf("写入徽章失败: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListAwardedIDs 用户已获得的徽章 ID 集合
func (r *BadgeRepository) ListAwardedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&schema.AwardedBadge{}).
		Where("user_id = ?", userID).
		Pluck("badge_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("查询已获徽章失败: %w", err)
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// ListAwarded 用户已获得的全部徽章（按获得时间）
func (r *BadgeRepository) ListAwarded(ctx context.Context, userID string) ([]schema.AwardedBadge, error) {
	var badges []schema.AwardedBadge
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("earned_at ASC, badge_id ASC").
		Find(&badges).Error
	if err != nil {
		return nil, fmt.Errorf("查询已获徽章失败: %w", err)
	}
	return badges, nil
}
