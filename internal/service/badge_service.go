package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yuqie6/StudyMirror/internal/eventbus"
	"github.com/yuqie6/StudyMirror/internal/observability"
	"github.com/yuqie6/StudyMirror/internal/schema"
	"github.com/yuqie6/StudyMirror/internal/taxonomy"
)

// BadgeService 徽章颁发
type BadgeService struct {
	repo      BadgeRepository
	progress  SkillProgressRepository
	taxonomy  TaxonomySource
	publisher EventPublisher
	now       func() time.Time

	// synced 已同步过定义的 skill-key；分类表替换后清空
	syncedMu  sync.Mutex
	syncedFor *taxonomy.Taxonomy
	synced    map[string]struct{}
}

// NewBadgeService 创建徽章服务；publisher 可为 nil
func NewBadgeService(repo BadgeRepository, progress SkillProgressRepository, tax TaxonomySource, publisher EventPublisher) *BadgeService {
	if tax == nil {
		tax = taxonomy.NewProvider(nil)
	}
	return &BadgeService{
		repo:      repo,
		progress:  progress,
		taxonomy:  tax,
		publisher: publisher,
		now:       time.Now,
		synced:    make(map[string]struct{}),
	}
}

// SyncDefinitions 为给定技能写入全部徽章定义（幂等）
func (s *BadgeService) SyncDefinitions(ctx context.Context, skills []string) (int64, error) {
	tax := s.taxonomy.Current()
	var defs []schema.BadgeDefinition
	for _, skill := range skills {
		defs = append(defs, tax.BadgesFor(skill)...)
	}
	n, err := s.repo.SyncDefinitions(ctx, defs)
	if err != nil {
		return 0, transient("同步徽章定义失败", err)
	}
	return n, nil
}

// Evaluate 对更新后的技能进度检查阈值，颁发新达成的徽章。
// 只会新增，已有徽章不受影响；并发竞争中落败的写入视为已颁发。
func (s *BadgeService) Evaluate(ctx context.Context, userID string, updated []schema.SkillProgress) ([]schema.AwardedBadge, error) {
	if len(updated) == 0 {
		return nil, nil
	}

	awarded, err := s.repo.ListAwardedIDs(ctx, userID)
	if err != nil {
		return nil, transient("查询已获徽章失败", err)
	}

	tiers := s.taxonomy.Current().Tiers()
	var earned []schema.AwardedBadge
	for _, sp := range updated {
		if err := s.ensureDefinitions(ctx, sp.SkillName); err != nil {
			return earned, err
		}
		ids := make([]string, 0, len(tiers))
		for _, tier := range tiers {
			ids = append(ids, taxonomy.BadgeID(sp.SkillName, tier.Threshold))
		}
		defs, err := s.repo.ListDefinitions(ctx, ids, sp.Progress)
		if err != nil {
			return earned, transient("查询徽章定义失败", err)
		}

		for _, def := range defs {
			if _, ok := awarded[def.ID]; ok {
				continue
			}
			badge := schema.AwardedBadge{
				UserID:    userID,
				BadgeID:   def.ID,
				SkillName: def.SkillName,
				Threshold: def.Threshold,
				Label:     def.Label,
				EarnedAt:  s.now(),
			}
			created, err := s.repo.Award(ctx, &badge)
			if err != nil {
				return earned, transient(fmt.Sprintf("颁发徽章 %s 失败", def.ID), err)
			}
			awarded[def.ID] = struct{}{}
			if !created {
				continue
			}
			earned = append(earned, badge)
			observability.IncBadgeAwarded(def.Label)
			s.publish(badge)
		}
	}

	if len(earned) > 0 {
		slog.Info("颁发新徽章", "user", userID, "count", len(earned))
	}
	return earned, nil
}

// Sweep 用用户全部技能进度重新检查一遍徽章（分类表档位变更后补发）
func (s *BadgeService) Sweep(ctx context.Context, userID string) ([]schema.AwardedBadge, error) {
	rows, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, transient("查询技能进度失败", err)
	}
	return s.Evaluate(ctx, userID, rows)
}

// ListAwarded 用户已获得的全部徽章
func (s *BadgeService) ListAwarded(ctx context.Context, userID string) ([]schema.AwardedBadge, error) {
	badges, err := s.repo.ListAwarded(ctx, userID)
	if err != nil {
		return nil, transient("查询已获徽章失败", err)
	}
	return badges, nil
}

// ensureDefinitions 动态技能（topic/未映射语言）首次出现时补齐定义
func (s *BadgeService) ensureDefinitions(ctx context.Context, skillName string) error {
	tax := s.taxonomy.Current()
	key := taxonomy.SkillKey(skillName)

	s.syncedMu.Lock()
	if s.syncedFor != tax {
		s.syncedFor = tax
		s.synced = make(map[string]struct{})
	}
	_, ok := s.synced[key]
	s.syncedMu.Unlock()
	if ok {
		return nil
	}

	if _, err := s.repo.SyncDefinitions(ctx, tax.BadgesFor(skillName)); err != nil {
		return transient("同步徽章定义失败", err)
	}

	s.syncedMu.Lock()
	if s.syncedFor == tax {
		s.synced[key] = struct{}{}
	}
	s.syncedMu.Unlock()
	return nil
}

func (s *BadgeService) publish(b schema.AwardedBadge) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(eventbus.Event{
		Type:   eventbus.TypeBadgeEarned,
		UserID: b.UserID,
		Data: map[string]any{
			"badge_id":   b.BadgeID,
			"skill_name": b.SkillName,
			"threshold":  b.Threshold,
			"label":      b.Label,
		},
	})
}
