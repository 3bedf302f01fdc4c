package repository

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/StudyMirror/internal/schema"
	"github.com/yuqie6/StudyMirror/internal/testutil"
)

func TestBadgeRepositoryAwardIsUnique(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewBadgeRepository(db)
	ctx := context.Background()

	badge := &schema.AwardedBadge{UserID: "u1", BadgeID: "python-25", SkillName: "Python", Threshold: 25, EarnedAt: time.Now()}
	created, err := repo.Award(ctx, badge)
	if err != nil || !created {
		t.Fatalf("first Award created=%v err=%v", created, err)
	}

	dup := &schema.AwardedBadge{UserID: "u1", BadgeID: "python-25", SkillName: "Python", Threshold: 25, EarnedAt: time.Now()}
	created, err = repo.Award(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate Award should not error: %v", err)
	}
	if created {
		t.Fatalf("duplicate Award should report created=false")
	}

	all, err := repo.ListAwarded(ctx, "u1")
	if err != nil || len(all) != 1 {
		t.Fatalf("ListAwarded err=%v len=%d", err, len(all))
	}
	ids, err := repo.ListAwardedIDs(ctx, "u1")
	if err != nil {
		t.Fatalf("ListAwardedIDs error: %v", err)
	}
	if _, ok := ids["python-25"]; !ok {
		t.Fatalf("ids=%v missing python-25", ids)
	}
}

func TestBadgeRepositorySyncDefinitions(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewBadgeRepository(db)
	ctx := context.Background()

	defs := []schema.BadgeDefinition{
		{ID: "go-25", SkillName: "Go", Threshold: 25, Label: "Bronze"},
		{ID: "go-50", SkillName: "Go", Threshold: 50, Label: "Silver"},
		{ID: "go-75", SkillName: "Go", Threshold: 75, Label: "Gold"},
	}
	n, err := repo.SyncDefinitions(ctx, defs)
	if err != nil || n != 3 {
		t.Fatalf("SyncDefinitions n=%d err=%v", n, err)
	}
	n, err = repo.SyncDefinitions(ctx, defs)
	if err != nil || n != 0 {
		t.Fatalf("second SyncDefinitions n=%d err=%v, want 0", n, err)
	}

	got, err := repo.ListDefinitions(ctx, []string{"go-75", "go-50", "go-25", "go-100"}, 50)
	if err != nil || len(got) != 2 {
		t.Fatalf("ListDefinitions err=%v got=%v", err, got)
	}
	if got[0].Threshold != 25 || got[1].Threshold != 50 {
		t.Fatalf("definitions not ordered by threshold: %+v", got)
	}

	if got, err := repo.ListDefinitions(ctx, nil, 100); err != nil || len(got) != 0 {
		t.Fatalf("empty ids err=%v got=%v", err, got)
	}
}
