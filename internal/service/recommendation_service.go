package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yuqie6/StudyMirror/internal/eventbus"
	"github.com/yuqie6/StudyMirror/internal/observability"
	"github.com/yuqie6/StudyMirror/internal/schema"
	"github.com/yuqie6/StudyMirror/internal/taxonomy"
)

// RecommendationService 个性化推荐：画像 -> 打分 -> 整体替换
type RecommendationService struct {
	events    ActivityEventRepository
	catalog   CatalogRepository
	recs      RecommendationRepository
	taxonomy  TaxonomySource
	publisher EventPublisher
	policy    ScoringPolicy
	now       func() time.Time
}

// NewRecommendationService 创建推荐服务
func NewRecommendationService(
	events ActivityEventRepository,
	catalog CatalogRepository,
	recs RecommendationRepository,
	tax TaxonomySource,
	publisher EventPublisher,
	policy ScoringPolicy,
) *RecommendationService {
	if tax == nil {
		tax = taxonomy.NewProvider(nil)
	}
	return &RecommendationService{
		events:    events,
		catalog:   catalog,
		recs:      recs,
		taxonomy:  tax,
		publisher: publisher,
		policy:    policy.normalized(),
		now:       time.Now,
	}
}

// Policy 当前打分参数
func (s *RecommendationService) Policy() ScoringPolicy {
	return s.policy
}

// Profile 计算用户当前偏好画像（不落库）
func (s *RecommendationService) Profile(ctx context.Context, userID string) (PreferenceProfile, error) {
	catalog, viewedIDs, err := s.load(ctx, userID)
	if err != nil {
		return PreferenceProfile{}, err
	}
	return BuildPreferenceProfile(catalog, viewedIDs), nil
}

// Regenerate 重新生成用户推荐并整体替换旧结果
func (s *RecommendationService) Regenerate(ctx context.Context, userID string) ([]schema.Recommendation, error) {
	catalog, viewedIDs, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := BuildPreferenceProfile(catalog, viewedIDs)
	viewed := make(map[string]struct{}, len(viewedIDs))
	for _, id := range viewedIDs {
		viewed[id] = struct{}{}
	}
	scored := ScoreCatalog(s.policy, profile, catalog, viewed)

	generation := uuid.NewString()
	now := s.now()
	recs := make([]schema.Recommendation, 0, len(scored))
	for i, item := range scored {
		recs = append(recs, schema.Recommendation{
			UserID:         userID,
			ItemID:         item.ItemID,
			ItemType:       item.ItemType,
			RelevanceScore: item.Score,
			Rank:           i + 1,
			Generation:     generation,
			CreatedAt:      now,
		})
	}

	if err := s.recs.ReplaceAll(ctx, userID, recs); err != nil {
		return nil, transient("写入推荐失败", err)
	}
	observability.ObserveRecommendations(len(recs))

	if s.publisher != nil {
		s.publisher.Publish(eventbus.Event{
			Type:   eventbus.TypeRecommendationsUpdated,
			UserID: userID,
			Data:   map[string]any{"generation": generation, "count": len(recs)},
		})
	}

	slog.Debug("推荐已重新生成", "user", userID, "count", len(recs), "cold_start", profile.Empty(), "generation", generation)
	return recs, nil
}

// GetRecommendations 读取用户推荐；limit <= 0 表示全部
func (s *RecommendationService) GetRecommendations(ctx context.Context, userID string, limit int) ([]schema.Recommendation, error) {
	recs, err := s.recs.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, transient("查询推荐失败", err)
	}
	return recs, nil
}

// MarkViewed 标记推荐已查看；(user, item) 不存在返回 ErrNotFound
func (s *RecommendationService) MarkViewed(ctx context.Context, userID, itemID string) error {
	ok, err := s.recs.MarkViewed(ctx, userID, itemID)
	if err != nil {
		return transient("标记推荐失败", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *RecommendationService) load(ctx context.Context, userID string) ([]schema.ContentItem, []string, error) {
	catalog, err := s.catalog.ListItems(ctx)
	if err != nil {
		return nil, nil, transient("读取内容目录失败", err)
	}
	viewedIDs, err := s.events.ListViewedContentIDs(ctx, userID, s.taxonomy.Current().ViewActivity())
	if err != nil {
		return nil, nil, transient("读取浏览历史失败", err)
	}
	return catalog, viewedIDs, nil
}
