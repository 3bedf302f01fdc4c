package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/StudyMirror/internal/pkg/config"
	"github.com/yuqie6/StudyMirror/internal/repository"
	"github.com/yuqie6/StudyMirror/internal/service"
	"github.com/yuqie6/StudyMirror/internal/testutil"
)

func TestAssembleSyncsBadgeDefinitions(t *testing.T) {
	db := testutil.OpenTestDB(t)
	core := Assemble(config.Default(), &repository.Database{DB: db, Driver: repository.DriverSQLite}, nil)
	ctx := context.Background()

	n, err := core.SyncBadgeDefinitions(ctx)
	if err != nil {
		t.Fatalf("SyncBadgeDefinitions error: %v", err)
	}
	want := int64(len(core.Taxonomy.Current().KnownSkills()) * len(core.Taxonomy.Current().Tiers()))
	if n != want {
		t.Fatalf("inserted=%d, want %d", n, want)
	}
	if n, _ := core.SyncBadgeDefinitions(ctx); n != 0 {
		t.Fatalf("second sync inserted=%d, want 0", n)
	}
}

func TestAgentDispatchesActivities(t *testing.T) {
	db := testutil.OpenTestDB(t)
	cfg := config.Default()
	cfg.Dispatcher.Workers = 2
	core := Assemble(cfg, &repository.Database{DB: db, Driver: repository.DriverSQLite}, nil)

	rt, err := StartAgent(context.Background(), core)
	if err != nil {
		t.Fatalf("StartAgent error: %v", err)
	}
	if rt.Watcher != nil {
		t.Fatalf("watcher should be disabled without taxonomy path")
	}

	for i := 0; i < 3; i++ {
		if !rt.Dispatcher.Submit(service.ActivityInput{UserID: "u1", ActivityType: "quiz_completed"}) {
			t.Fatalf("submit rejected")
		}
	}
	_ = rt.Dispatcher.Stop()

	rows, err := core.Services.Progress.ListProgress(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListProgress error: %v", err)
	}
	if len(rows) != 1 || rows[0].SkillName != "Knowledge Check" || rows[0].Progress != 24 {
		t.Fatalf("rows=%+v", rows)
	}
	if st := rt.Dispatcher.Stats(); st.Processed != 3 || st.LastProcessedAt > time.Now().UnixMilli() {
		t.Fatalf("stats=%+v", st)
	}
}

func TestStartAgentSafeModeSkipsWriters(t *testing.T) {
	db := testutil.OpenTestDB(t)
	core := Assemble(nil, &repository.Database{DB: db, SafeMode: true, MigrationError: "boom"}, nil)
	rt, err := StartAgent(context.Background(), core)
	if err != nil {
		t.Fatalf("StartAgent error: %v", err)
	}
	if rt.Dispatcher != nil {
		t.Fatalf("dispatcher must not start in safe mode")
	}
	if err := core.RequireWritable(); err == nil {
		t.Fatalf("RequireWritable should fail in safe mode")
	}
}
