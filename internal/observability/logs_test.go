package observability

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadRecentErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.log")
	content := `time=2026-01-01T10:00:00Z level=INFO msg=启动
time=2026-01-01T10:00:01Z level=WARN msg="推荐分支失败" user=u1
time=2026-01-01T10:00:02Z level=ERROR msg=写入失败 error=boom
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := ReadRecentErrors(path, 10)
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2: %+v", len(got), got)
	}
	if got[0].Level != "ERROR" || got[0].Message != "写入失败" {
		t.Fatalf("first=%+v", got[0])
	}
	if got[1].Message != "推荐分支失败" || got[1].Time != "2026-01-01T10:00:01Z" {
		t.Fatalf("second=%+v", got[1])
	}

	if got := ReadRecentErrors("", 10); got != nil {
		t.Fatalf("empty path should return nil")
	}
	if got := ReadRecentErrors(filepath.Join(t.TempDir(), "missing.log"), 10); len(got) != 1 {
		t.Fatalf("missing file should report one read error, got %+v", got)
	}
}
