package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yuqie6/StudyMirror/internal/repository"
	"github.com/yuqie6/StudyMirror/internal/schema"
	"github.com/yuqie6/StudyMirror/internal/testutil"
	"gorm.io/gorm"
)

type failingRecommendationRepo struct{}

func (failingRecommendationRepo) ReplaceAll(ctx context.Context, userID string, recs []schema.Recommendation) error {
	return errors.New("disk full")
}
func (failingRecommendationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]schema.Recommendation, error) {
	return nil, errors.New("disk full")
}
func (failingRecommendationRepo) MarkViewed(ctx context.Context, userID, itemID string) (bool, error) {
	return false, errors.New("disk full")
}

type pipelineFixture struct {
	db        *gorm.DB
	pipeline  *PipelineService
	progress  *ProgressService
	recommend *RecommendationService
	publisher *recordingPublisher
}

func newPipelineFixture(t *testing.T, recRepo RecommendationRepository) *pipelineFixture {
	t.Helper()
	db := testutil.OpenTestDB(t)
	events := repository.NewActivityEventRepository(db)
	progressRepo := repository.NewSkillProgressRepository(db)
	catalog := repository.NewCatalogRepository(db)
	if recRepo == nil {
		recRepo = repository.NewRecommendationRepository(db)
	}
	if err := catalog.UpsertItems(context.Background(), sampleCatalog()); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	pub := &recordingPublisher{}
	progress := NewProgressService(progressRepo, nil)
	badges := NewBadgeService(repository.NewBadgeRepository(db), progressRepo, nil, pub)
	recommend := NewRecommendationService(events, catalog, recRepo, nil, pub, DefaultScoringPolicy())
	pipeline := NewPipelineService(events, progress, badges, recommend, nil, pub, PipelineOptions{RegenerateOnView: true})
	return &pipelineFixture{db: db, pipeline: pipeline, progress: progress, recommend: recommend, publisher: pub}
}

func TestLogActivityUpdatesProgressAndBadges(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	var out *ActivityOutcome
	var err error
	for i := 0; i < 3; i++ {
		out, err = f.pipeline.LogActivity(ctx, ActivityInput{
			UserID:       "u1",
			ActivityType: " Exercise_Completed ",
			Context:      schema.ActivityContext{Language: "Python"},
		})
		if err != nil {
			t.Fatalf("LogActivity error: %v", err)
		}
	}
	if out.Err() != nil {
		t.Fatalf("branch error: %v", out.Err())
	}
	if !out.Known || out.Event.ActivityType != "exercise_completed" {
		t.Fatalf("event=%+v known=%v", out.Event, out.Known)
	}
	if len(out.Progress) != 3 || out.Progress[0].Progress != 30 {
		t.Fatalf("progress=%+v", out.Progress)
	}
	// 第三次达到 30，越过 25 档位：三个技能各得一枚 Bronze
	if len(out.NewBadges) != 3 {
		t.Fatalf("new badges=%+v, want 3", out.NewBadges)
	}
	if out.RecommendationsRegenerated {
		t.Fatalf("non-view event must not regenerate recommendations")
	}
}

func TestLogActivityViewRegeneratesRecommendations(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	for _, id := range []string{"b1", "b2", "b3"} {
		out, err := f.pipeline.LogActivity(ctx, ActivityInput{UserID: "u1", ActivityType: "content_viewed", ContentID: id})
		if err != nil || out.Err() != nil {
			t.Fatalf("LogActivity err=%v branch=%v", err, out.Err())
		}
		if !out.RecommendationsRegenerated {
			t.Fatalf("view event should regenerate recommendations")
		}
	}

	recs, err := f.recommend.GetRecommendations(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("GetRecommendations error: %v", err)
	}
	if len(recs) != 4 || recs[0].ItemID != "b4" {
		t.Fatalf("recs=%+v, want 4 items led by b4", recs)
	}
	for _, r := range recs {
		if r.ItemID == "b1" || r.ItemID == "b2" || r.ItemID == "b3" {
			t.Fatalf("viewed item %s recommended", r.ItemID)
		}
		if r.RelevanceScore < 0 || r.RelevanceScore > 1 {
			t.Fatalf("score out of range: %+v", r)
		}
	}

	if err := f.recommend.MarkViewed(ctx, "u1", "b4"); err != nil {
		t.Fatalf("MarkViewed error: %v", err)
	}
	if err := f.recommend.MarkViewed(ctx, "u1", "b1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("MarkViewed missing err=%v, want ErrNotFound", err)
	}
}

func TestRecommendationFailureDoesNotBlockMastery(t *testing.T) {
	f := newPipelineFixture(t, failingRecommendationRepo{})
	ctx := context.Background()

	out, err := f.pipeline.LogActivity(ctx, ActivityInput{UserID: "u1", ActivityType: "content_viewed", ContentID: "b1"})
	if err != nil {
		t.Fatalf("LogActivity error: %v", err)
	}
	if !errors.Is(out.RecommendErr, ErrTransient) {
		t.Fatalf("RecommendErr=%v, want ErrTransient", out.RecommendErr)
	}
	if out.MasteryErr != nil || len(out.Progress) != 1 || out.Progress[0].SkillName != "Exploration" {
		t.Fatalf("mastery branch should still run: %+v err=%v", out.Progress, out.MasteryErr)
	}
	if !errors.Is(out.Err(), ErrTransient) {
		t.Fatalf("joined err=%v", out.Err())
	}
}

func TestLogActivityValidation(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	for _, in := range []ActivityInput{
		{ActivityType: "quiz_completed"},
		{UserID: "u1", ActivityType: "   "},
	} {
		if _, err := f.pipeline.LogActivity(ctx, in); !errors.Is(err, ErrInvalidActivity) {
			t.Fatalf("LogActivity(%+v) err=%v, want ErrInvalidActivity", in, err)
		}
	}

	out, err := f.pipeline.LogActivity(ctx, ActivityInput{UserID: "u1", ActivityType: "unheard_of"})
	if err != nil || out.Known || len(out.Progress) != 0 {
		t.Fatalf("unknown type should be recorded as a no-op: out=%+v err=%v", out, err)
	}
}

func TestConcurrentLogActivityKeepsBothIncrements(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.pipeline.LogActivity(ctx, ActivityInput{UserID: "u1", ActivityType: "exercise_completed"}); err != nil {
				t.Errorf("LogActivity error: %v", err)
			}
		}()
	}
	wg.Wait()

	rows, err := f.progress.ListProgress(ctx, "u1")
	if err != nil {
		t.Fatalf("ListProgress error: %v", err)
	}
	for _, sp := range rows {
		if sp.Progress != 20 {
			t.Fatalf("%s progress=%d, want 20", sp.SkillName, sp.Progress)
		}
	}
}

func TestRegenerateRecommendationsColdStart(t *testing.T) {
	f := newPipelineFixture(t, nil)
	recs, err := f.pipeline.RegenerateRecommendations(context.Background(), "newbie")
	if err != nil {
		t.Fatalf("Regenerate error: %v", err)
	}
	if len(recs) != len(sampleCatalog()) {
		t.Fatalf("cold start recs=%d, want whole catalog", len(recs))
	}
	if recs[0].Rank != 1 || recs[0].Generation == "" {
		t.Fatalf("first rec=%+v", recs[0])
	}
	if _, err := f.pipeline.RegenerateRecommendations(context.Background(), " "); !errors.Is(err, ErrInvalidActivity) {
		t.Fatalf("blank user err=%v", err)
	}
}

func TestBadgesFollowSkillKeyAcrossSpellings(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	inputs := []ActivityInput{
		{UserID: "u1", ActivityType: "exercise_completed", Context: schema.ActivityContext{Language: "C++"}},
		{UserID: "u1", ActivityType: "exercise_completed", Context: schema.ActivityContext{Topic: "cpp"}},
		{UserID: "u1", ActivityType: "exercise_completed", Context: schema.ActivityContext{Topic: "cpp"}},
		{UserID: "u1", ActivityType: "exercise_completed", Context: schema.ActivityContext{Topic: "cpp"}},
	}
	for _, in := range inputs {
		out, err := f.pipeline.LogActivity(ctx, in)
		if err != nil || out.Err() != nil {
			t.Fatalf("LogActivity err=%v branch=%v", err, out.Err())
		}
	}

	rows, err := f.progress.ListProgress(ctx, "u1")
	if err != nil {
		t.Fatalf("ListProgress error: %v", err)
	}
	got := map[string]int{}
	for _, sp := range rows {
		got[sp.SkillName] = sp.Progress
	}
	if got["C++"] != 40 {
		t.Fatalf("progress=%v, want C++=40", got)
	}
	if _, split := got["cpp"]; split {
		t.Fatalf("topic spelling must fold into C++: %v", got)
	}

	// 分类表外的动态技能即使写法不同，也按 skill-key 共用徽章定义
	for _, in := range []ActivityInput{
		{UserID: "u1", ActivityType: "lesson_completed", Context: schema.ActivityContext{Topic: "Monads", IncrementOverride: intPtr(10)}},
		{UserID: "u1", ActivityType: "lesson_completed", Context: schema.ActivityContext{Topic: "monads", IncrementOverride: intPtr(30)}},
	} {
		if _, err := f.pipeline.LogActivity(ctx, in); err != nil {
			t.Fatalf("LogActivity error: %v", err)
		}
	}

	ids, err := repository.NewBadgeRepository(f.db).ListAwardedIDs(ctx, "u1")
	if err != nil {
		t.Fatalf("ListAwardedIDs error: %v", err)
	}
	for _, want := range []string{"cpp-25", "practice-25", "problem-solving-25", "monads-25"} {
		if _, ok := ids[want]; !ok {
			t.Fatalf("awarded=%v, missing %s", ids, want)
		}
	}
}

type failingBadgeRepo struct{}

func (failingBadgeRepo) SyncDefinitions(ctx context.Context, defs []schema.BadgeDefinition) (int64, error) {
	return 0, errors.New("badge store down")
}
func (failingBadgeRepo) ListDefinitions(ctx context.Context, ids []string, maxThreshold int) ([]schema.BadgeDefinition, error) {
	return nil, errors.New("badge store down")
}
func (failingBadgeRepo) Award(ctx context.Context, badge *schema.AwardedBadge) (bool, error) {
	return false, errors.New("badge store down")
}
func (failingBadgeRepo) ListAwardedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	return nil, errors.New("badge store down")
}
func (failingBadgeRepo) ListAwarded(ctx context.Context, userID string) ([]schema.AwardedBadge, error) {
	return nil, errors.New("badge store down")
}

func TestMasteryErrKeepsBadgeFailureAfterPartialProgress(t *testing.T) {
	db := testutil.OpenTestDB(t)
	events := repository.NewActivityEventRepository(db)
	progressRepo := newFakeProgressRepo()
	progressRepo.failOn = "Python"
	progressRepo.failErr = errors.New("progress store down")

	progress := NewProgressService(progressRepo, nil)
	badges := NewBadgeService(failingBadgeRepo{}, progressRepo, nil, nil)
	recommend := NewRecommendationService(events, repository.NewCatalogRepository(db), repository.NewRecommendationRepository(db), nil, nil, DefaultScoringPolicy())
	pipeline := NewPipelineService(events, progress, badges, recommend, nil, nil, PipelineOptions{})

	out, err := pipeline.LogActivity(context.Background(), ActivityInput{
		UserID:       "u1",
		ActivityType: "exercise_completed",
		Context:      schema.ActivityContext{Language: "Python"},
	})
	if err != nil {
		t.Fatalf("LogActivity error: %v", err)
	}
	if len(out.Progress) != 2 {
		t.Fatalf("partial progress=%+v, want 2 rows", out.Progress)
	}
	if !errors.Is(out.MasteryErr, ErrTransient) {
		t.Fatalf("MasteryErr=%v, want ErrTransient", out.MasteryErr)
	}
	msg := out.MasteryErr.Error()
	if !strings.Contains(msg, "progress store down") || !strings.Contains(msg, "badge store down") {
		t.Fatalf("MasteryErr=%q, want both progress and badge failures", msg)
	}
}

func TestRecentActivities(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, typ := range []string{"quiz_completed", "lesson_completed", "exercise_completed"} {
		if _, err := f.pipeline.LogActivity(ctx, ActivityInput{UserID: "u1", ActivityType: typ, OccurredAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("LogActivity error: %v", err)
		}
	}

	events, err := f.pipeline.RecentActivities(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("RecentActivities error: %v", err)
	}
	if len(events) != 2 || events[0].ActivityType != "exercise_completed" || events[1].ActivityType != "lesson_completed" {
		t.Fatalf("events=%+v", events)
	}
	if _, err := f.pipeline.RecentActivities(ctx, "", 0); !errors.Is(err, ErrInvalidActivity) {
		t.Fatalf("blank user err=%v", err)
	}
}

func intPtr(v int) *int { return &v }
