package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuqie6/StudyMirror/internal/observability"
	"github.com/yuqie6/StudyMirror/internal/schema"
	"github.com/yuqie6/StudyMirror/internal/taxonomy"
)

// ProgressService 技能进度更新
type ProgressService struct {
	repo     SkillProgressRepository
	taxonomy TaxonomySource
	now      func() time.Time
}

// NewProgressService 创建技能进度服务；taxonomy 为 nil 时使用内置分类表
func NewProgressService(repo SkillProgressRepository, tax TaxonomySource) *ProgressService {
	if tax == nil {
		tax = taxonomy.NewProvider(nil)
	}
	return &ProgressService{repo: repo, taxonomy: tax, now: time.Now}
}

// Apply 根据一条学习事件更新相关技能的进度，返回更新后的行（顺序与分类表解析顺序一致）。
// 未知活动类型、无技能或增量 <= 0 时不做任何写入。
func (s *ProgressService) Apply(ctx context.Context, event *schema.ActivityEvent) ([]schema.SkillProgress, error) {
	if event == nil {
		return nil, nil
	}

	res := s.taxonomy.Current().Resolve(event.ActivityType, event.Context)
	if !res.Known {
		slog.Debug("未知活动类型，跳过技能更新", "activity_type", event.ActivityType, "user", event.UserID)
		return nil, nil
	}
	if res.Increment <= 0 || len(res.Skills) == 0 {
		return nil, nil
	}

	now := s.now()
	updated := make([]schema.SkillProgress, 0, len(res.Skills))
	for _, skill := range res.Skills {
		row, err := s.repo.IncrementAndClamp(ctx, event.UserID, skill, res.Increment, now)
		if err != nil {
			observability.AddProgressUpdates(len(updated))
			return updated, transient(fmt.Sprintf("更新技能 %s 进度失败", skill), err)
		}
		updated = append(updated, *row)
	}
	observability.AddProgressUpdates(len(updated))

	slog.Debug("技能进度已更新", "user", event.UserID, "activity_type", event.ActivityType, "skills", len(updated), "increment", res.Increment)
	return updated, nil
}

// ListProgress 用户全部技能进度
func (s *ProgressService) ListProgress(ctx context.Context, userID string) ([]schema.SkillProgress, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, transient("查询技能进度失败", err)
	}
	return rows, nil
}
