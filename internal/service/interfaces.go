package service

import (
	"context"
	"time"

	"github.com/yuqie6/StudyMirror/internal/eventbus"
	"github.com/yuqie6/StudyMirror/internal/schema"
	"github.com/yuqie6/StudyMirror/internal/taxonomy"
)

// 仓储/外部依赖的最小接口集合（ISP）

type ActivityEventRepository interface {
	Create(ctx context.Context, event *schema.ActivityEvent) error
	ListViewedContentIDs(ctx context.Context, userID, viewActivity string) ([]string, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]schema.ActivityEvent, error)
}

type SkillProgressRepository interface {
	IncrementAndClamp(ctx context.Context, userID, skillName string, amount int, now time.Time) (*schema.SkillProgress, error)
	ListByUser(ctx context.Context, userID string) ([]schema.SkillProgress, error)
}

type BadgeRepository interface {
	SyncDefinitions(ctx context.Context, defs []schema.BadgeDefinition) (int64, error)
	ListDefinitions(ctx context.Context, ids []string, maxThreshold int) ([]schema.BadgeDefinition, error)
	Award(ctx context.Context, badge *schema.AwardedBadge) (bool, error)
	ListAwardedIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	ListAwarded(ctx context.Context, userID string) ([]schema.AwardedBadge, error)
}

type CatalogRepository interface {
	ListItems(ctx context.Context) ([]schema.ContentItem, error)
}

type RecommendationRepository interface {
	ReplaceAll(ctx context.Context, userID string, recs []schema.Recommendation) error
	ListByUser(ctx context.Context, userID string, limit int) ([]schema.Recommendation, error)
	MarkViewed(ctx context.Context, userID, itemID string) (bool, error)
}

// TaxonomySource 当前生效的技能分类表（支持热更新）
type TaxonomySource interface {
	Current() *taxonomy.Taxonomy
}

type EventPublisher interface {
	Publish(evt eventbus.Event)
}
