package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yuqie6/StudyMirror/internal/eventbus"
	"github.com/yuqie6/StudyMirror/internal/observability"
	"github.com/yuqie6/StudyMirror/internal/schema"
	"github.com/yuqie6/StudyMirror/internal/taxonomy"
)

// ActivityInput 一次学习行为
type ActivityInput struct {
	UserID       string
	ActivityType string
	ContentID    string
	Context      schema.ActivityContext
	OccurredAt   time.Time
}

// ActivityOutcome 事件处理结果；两个分支的错误互不影响，分别记录
type ActivityOutcome struct {
	Event                      schema.ActivityEvent   `json:"event"`
	Known                      bool                   `json:"known"`
	Progress                   []schema.SkillProgress `json:"progress"`
	NewBadges                  []schema.AwardedBadge  `json:"new_badges"`
	RecommendationsRegenerated bool                   `json:"recommendations_regenerated"`
	RecommendationCount        int                    `json:"recommendation_count"`

	MasteryErr   error `json:"-"`
	RecommendErr error `json:"-"`
}

// Err 合并两个分支的错误
func (o *ActivityOutcome) Err() error {
	if o == nil {
		return nil
	}
	return errors.Join(o.MasteryErr, o.RecommendErr)
}

// PipelineOptions 流水线开关
type PipelineOptions struct {
	// RegenerateOnView 浏览内容事件到达时同步重新生成推荐
	RegenerateOnView bool
}

// PipelineService 学习事件处理入口：掌握度/徽章分支与推荐分支并行执行
type PipelineService struct {
	events    ActivityEventRepository
	progress  *ProgressService
	badges    *BadgeService
	recommend *RecommendationService
	taxonomy  TaxonomySource
	publisher EventPublisher
	opts      PipelineOptions
	now       func() time.Time
}

// NewPipelineService 创建流水线
func NewPipelineService(
	events ActivityEventRepository,
	progress *ProgressService,
	badges *BadgeService,
	recommend *RecommendationService,
	tax TaxonomySource,
	publisher EventPublisher,
	opts PipelineOptions,
) *PipelineService {
	if tax == nil {
		tax = taxonomy.NewProvider(nil)
	}
	return &PipelineService{
		events:    events,
		progress:  progress,
		badges:    badges,
		recommend: recommend,
		taxonomy:  tax,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

// LogActivity 追加事件并同步执行两个分支。
// 返回的 error 只表示事件本身没有写入（输入非法或存储失败）；分支失败记录在 outcome 中。
func (s *PipelineService) LogActivity(ctx context.Context, in ActivityInput) (*ActivityOutcome, error) {
	event, err := s.newEvent(in)
	if err != nil {
		observability.RecordActivity("invalid")
		return nil, err
	}

	if err := s.events.Create(ctx, &event); err != nil {
		observability.RecordActivity("error")
		return nil, transient("写入学习事件失败", err)
	}

	tax := s.taxonomy.Current()
	out := &ActivityOutcome{Event: event}
	out.Known = tax.Resolve(event.ActivityType, event.Context).Known
	if out.Known {
		observability.RecordActivity("accepted")
	} else {
		observability.RecordActivity("unknown_type")
	}

	var g errgroup.Group
	g.Go(func() error {
		started := time.Now()
		out.Progress, out.NewBadges, out.MasteryErr = s.runMastery(ctx, &event)
		observability.ObserveBranch("mastery", started, out.MasteryErr)
		return nil
	})
	if s.opts.RegenerateOnView && tax.IsViewActivity(event.ActivityType) && event.ContentID != "" {
		g.Go(func() error {
			started := time.Now()
			recs, err := s.recommend.Regenerate(ctx, event.UserID)
			observability.ObserveBranch("recommendation", started, err)
			if err != nil {
				out.RecommendErr = err
				return nil
			}
			out.RecommendationsRegenerated = true
			out.RecommendationCount = len(recs)
			return nil
		})
	}
	_ = g.Wait()

	if out.MasteryErr != nil {
		slog.Warn("掌握度分支失败", "user", event.UserID, "event_id", event.ID, "error", out.MasteryErr)
	}
	if out.RecommendErr != nil {
		slog.Warn("推荐分支失败", "user", event.UserID, "event_id", event.ID, "error", out.RecommendErr)
	}
	return out, nil
}

// RegenerateRecommendations 按需重新生成推荐
func (s *PipelineService) RegenerateRecommendations(ctx context.Context, userID string) ([]schema.Recommendation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id 不能为空", ErrInvalidActivity)
	}
	started := time.Now()
	recs, err := s.recommend.Regenerate(ctx, userID)
	observability.ObserveBranch("recommendation", started, err)
	return recs, err
}

// RecentActivities 用户最近的学习事件（新的在前）；limit <= 0 表示全部
func (s *PipelineService) RecentActivities(ctx context.Context, userID string, limit int) ([]schema.ActivityEvent, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id 不能为空", ErrInvalidActivity)
	}
	events, err := s.events.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, transient("查询学习事件失败", err)
	}
	return events, nil
}

func (s *PipelineService) runMastery(ctx context.Context, event *schema.ActivityEvent) ([]schema.SkillProgress, []schema.AwardedBadge, error) {
	updated, err := s.progress.Apply(ctx, event)
	if len(updated) > 0 && s.publisher != nil {
		for _, sp := range updated {
			s.publisher.Publish(eventbus.Event{
				Type:   eventbus.TypeProgressUpdated,
				UserID: sp.UserID,
				Data:   map[string]any{"skill_name": sp.SkillName, "progress": sp.Progress},
			})
		}
	}
	if err != nil {
		// 已经写入的技能仍然检查徽章，保证进度与徽章一致
		badges, badgeErr := s.badges.Evaluate(ctx, event.UserID, updated)
		return updated, badges, errors.Join(err, badgeErr)
	}

	badges, err := s.badges.Evaluate(ctx, event.UserID, updated)
	return updated, badges, err
}

func (s *PipelineService) newEvent(in ActivityInput) (schema.ActivityEvent, error) {
	userID := strings.TrimSpace(in.UserID)
	activityType := strings.ToLower(strings.TrimSpace(in.ActivityType))
	if userID == "" {
		return schema.ActivityEvent{}, fmt.Errorf("%w: user_id 不能为空", ErrInvalidActivity)
	}
	if activityType == "" {
		return schema.ActivityEvent{}, fmt.Errorf("%w: activity_type 不能为空", ErrInvalidActivity)
	}

	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	return schema.ActivityEvent{
		ID:           uuid.NewString(),
		UserID:       userID,
		ActivityType: activityType,
		ContentID:    strings.TrimSpace(in.ContentID),
		Context:      in.Context,
		OccurredAt:   occurred,
	}, nil
}
