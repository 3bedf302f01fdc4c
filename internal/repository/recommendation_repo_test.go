package repository

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/StudyMirror/internal/schema"
	"github.com/yuqie6/StudyMirror/internal/testutil"
)

func TestRecommendationReplaceAll(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewRecommendationRepository(db)
	ctx := context.Background()
	now := time.Now()

	first := []schema.Recommendation{
		{ItemID: "a", RelevanceScore: 0.9, Rank: 1, Generation: "g1", CreatedAt: now},
		{ItemID: "b", RelevanceScore: 0.5, Rank: 2, Generation: "g1", CreatedAt: now},
	}
	if err := repo.ReplaceAll(ctx, "u1", first); err != nil {
		t.Fatalf("ReplaceAll error: %v", err)
	}
	if ok, err := repo.MarkViewed(ctx, "u1", "a"); err != nil || !ok {
		t.Fatalf("MarkViewed ok=%v err=%v", ok, err)
	}

	second := []schema.Recommendation{
		{ItemID: "c", RelevanceScore: 0.7, Rank: 1, Generation: "g2", CreatedAt: now},
	}
	if err := repo.ReplaceAll(ctx, "u1", second); err != nil {
		t.Fatalf("ReplaceAll error: %v", err)
	}

	got, err := repo.ListByUser(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if len(got) != 1 || got[0].ItemID != "c" || got[0].Generation != "g2" || got[0].IsViewed {
		t.Fatalf("got=%+v, want only fresh item c", got)
	}
	if got[0].UserID != "u1" {
		t.Fatalf("user id not stamped: %q", got[0].UserID)
	}
}

func TestRecommendationListOrderAndLimit(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewRecommendationRepository(db)
	ctx := context.Background()

	recs := []schema.Recommendation{
		{ItemID: "z", RelevanceScore: 0.4, Rank: 2},
		{ItemID: "y", RelevanceScore: 0.8, Rank: 1},
		{ItemID: "x", RelevanceScore: 0.4, Rank: 3},
	}
	if err := repo.ReplaceAll(ctx, "u1", recs); err != nil {
		t.Fatalf("ReplaceAll error: %v", err)
	}
	got, err := repo.ListByUser(ctx, "u1", 2)
	if err != nil || len(got) != 2 {
		t.Fatalf("ListByUser err=%v len=%d", err, len(got))
	}
	if got[0].ItemID != "y" || got[1].ItemID != "x" {
		t.Fatalf("order=%s,%s want y,x", got[0].ItemID, got[1].ItemID)
	}

	if ok, err := repo.MarkViewed(ctx, "u1", "missing"); err != nil || ok {
		t.Fatalf("MarkViewed missing ok=%v err=%v", ok, err)
	}
}
