package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yuqie6/StudyMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SkillProgressRepository 技能进度仓储
type SkillProgressRepository struct {
	db *gorm.DB
}

// NewSkillProgressRepository 创建仓储
func NewSkillProgressRepository(db *gorm.DB) *SkillProgressRepository {
	return &SkillProgressRepository{db: db}
}

// IncrementAndClamp 原子地为 (user, skill) 增加进度并封顶 100，返回更新后的行。
// 先 insert-or-ignore 零值行，再用单条 UPDATE 完成“读-改-写”，并发事件不会丢失增量。
func (r *SkillProgressRepository) IncrementAndClamp(ctx context.Context, userID, skillName string, amount int, now time.Time) (*schema.SkillProgress, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("增量必须为正数: %d", amount)
	}

	var out schema.SkillProgress
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := schema.SkillProgress{
			UserID:      userID,
			SkillName:   skillName,
			Progress:    0,
			LastUpdated: now,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("初始化技能进度失败: %w", err)
		}

		res := tx.Model(&schema.SkillProgress{}).
			Where("user_id = ? AND skill_name = ?", userID, skillName).
			Updates(map[string]interface{}{
				"progress": gorm.Expr(
					"CASE WHEN progress + ? > ? THEN ? ELSE progress + ? END",
					amount, schema.MaxSkillProgress, schema.MaxSkillProgress, amount,
				),
				"last_updated": now,
			})
		if res.Error != nil {
			return fmt.Errorf("更新技能进度失败: %w", res.Error)
		}

		return tx.Where("user_id = ? AND skill_name = ?", userID, skillName).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByUser 获取用户全部技能进度（进度降序）
func (r *SkillProgressRepository) ListByUser(ctx context.Context, userID string) ([]schema.SkillProgress, error) {
	var rows []schema.SkillProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("progress DESC, skill_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询技能进度失败: %w", err)
	}
	return rows, nil
}
