package repository

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/yuqie6/StudyMirror/internal/schema"
	"github.com/yuqie6/StudyMirror/internal/testutil"
)

func TestActivityEventRepositoryViewedHistory(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewActivityEventRepository(db)
	catalog := NewCatalogRepository(db)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	events := []schema.ActivityEvent{
		{ID: "e1", UserID: "u1", ActivityType: "content_viewed", ContentID: "c2", OccurredAt: base},
		{ID: "e2", UserID: "u1", ActivityType: "exercise_completed", ContentID: "c9", OccurredAt: base.Add(time.Minute)},
		{ID: "e3", UserID: "u1", ActivityType: "content_viewed", ContentID: "c1", OccurredAt: base.Add(2 * time.Minute)},
		{ID: "e4", UserID: "u2", ActivityType: "content_viewed", ContentID: "c3", OccurredAt: base},
		{ID: "e5", UserID: "u1", ActivityType: "content_viewed", OccurredAt: base.Add(3 * time.Minute)},
	}
	for i := range events {
		if err := repo.Create(ctx, &events[i]); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	ids, err := repo.ListViewedContentIDs(ctx, "u1", "Content_Viewed")
	if err != nil {
		t.Fatalf("ListViewedContentIDs error: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"c2", "c1"}) {
		t.Fatalf("ids=%v, want [c2 c1]", ids)
	}

	if n, _ := repo.Count(ctx); n != 5 {
		t.Fatalf("count=%d, want 5", n)
	}

	recent, err := repo.ListByUser(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "e5" || recent[1].ID != "e3" {
		t.Fatalf("recent=%+v, want [e5 e3]", recent)
	}
	if all, _ := repo.ListByUser(ctx, "u1", 0); len(all) != 4 {
		t.Fatalf("all=%d, want 4", len(all))
	}

	if err := catalog.UpsertItems(ctx, []schema.ContentItem{
		{ID: "c2", Category: "Backend", Path: "Web Development", Difficulty: "beginner"},
		{ID: "c1", Category: "Frontend", Path: "Web Development", Difficulty: "advanced"},
	}); err != nil {
		t.Fatalf("UpsertItems error: %v", err)
	}
	items, err := catalog.ListItems(ctx)
	if err != nil || len(items) != 2 || items[0].ID != "c1" {
		t.Fatalf("ListItems err=%v items=%+v", err, items)
	}
}
