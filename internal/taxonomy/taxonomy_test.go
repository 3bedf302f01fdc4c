package taxonomy

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/yuqie6/StudyMirror/internal/schema"
)

func intPtr(v int) *int { return &v }

func TestResolveExerciseWithLanguage(t *testing.T) {
	tx := Default()
	res := tx.Resolve("exercise_completed", schema.ActivityContext{Language: "Python"})
	if !res.Known {
		t.Fatalf("exercise_completed should be known")
	}
	if res.Increment != 10 {
		t.Fatalf("increment=%d, want 10", res.Increment)
	}
	want := []string{"Practice", "Problem Solving", "Python"}
	if !reflect.DeepEqual(res.Skills, want) {
		t.Fatalf("skills=%v, want %v", res.Skills, want)
	}
}

func TestResolveUnknownActivityIsEmpty(t *testing.T) {
	res := Default().Resolve("telepathy_session", schema.ActivityContext{Language: "Go", Topic: "channels"})
	if res.Known || len(res.Skills) != 0 || res.Increment != 0 {
		t.Fatalf("unknown activity should resolve to empty, got %+v", res)
	}
}

func TestResolveLanguageFallbackAndTopic(t *testing.T) {
	tx := Default()

	res := tx.Resolve("lesson_completed", schema.ActivityContext{Language: "Haskell", Topic: "Monads"})
	want := []string{"Learning", "Haskell", "Monads"}
	if !reflect.DeepEqual(res.Skills, want) {
		t.Fatalf("skills=%v, want %v", res.Skills, want)
	}

	// 哨兵 topic 不计为技能
	res = tx.Resolve("lesson_completed", schema.ActivityContext{Topic: "Summary"})
	if !reflect.DeepEqual(res.Skills, []string{"Learning"}) {
		t.Fatalf("skills=%v, want [Learning]", res.Skills)
	}
}

func TestResolveDedupesAndOverrides(t *testing.T) {
	tx := Default()
	res := tx.Resolve("Exercise_Completed", schema.ActivityContext{
		Language:          "typescript",
		Topic:             "javascript",
		IncrementOverride: intPtr(3),
	})
	want := []string{"Practice", "Problem Solving", "TypeScript", "JavaScript", "Web Development"}
	if !reflect.DeepEqual(res.Skills, want) {
		t.Fatalf("skills=%v, want %v", res.Skills, want)
	}
	if res.Increment != 3 {
		t.Fatalf("increment=%d, want override 3", res.Increment)
	}
}

func TestResolveUsesTaxonomySpelling(t *testing.T) {
	tx := Default()

	res := tx.Resolve("exercise_completed", schema.ActivityContext{Topic: "cpp"})
	want := []string{"Practice", "Problem Solving", "C++"}
	if !reflect.DeepEqual(res.Skills, want) {
		t.Fatalf("skills=%v, want %v", res.Skills, want)
	}

	res = tx.Resolve("lesson_completed", schema.ActivityContext{Language: "CPP", Topic: "python"})
	want = []string{"Learning", "C++", "Python"}
	if !reflect.DeepEqual(res.Skills, want) {
		t.Fatalf("skills=%v, want %v", res.Skills, want)
	}

	if got := tx.Canonical("  monads "); got != "monads" {
		t.Fatalf("Canonical(monads)=%q", got)
	}
}

func TestBadgesFor(t *testing.T) {
	defs := Default().BadgesFor("Problem Solving")
	if len(defs) != 4 {
		t.Fatalf("defs=%d, want 4", len(defs))
	}
	if defs[0].ID != "problem-solving-25" || defs[0].Label != "Bronze" {
		t.Fatalf("first def=%+v", defs[0])
	}
	if defs[3].Threshold != 100 {
		t.Fatalf("last threshold=%d, want 100", defs[3].Threshold)
	}
	if got := BadgeID("C++", 50); got != "cpp-50" {
		t.Fatalf("BadgeID(C++)=%q", got)
	}
}

func TestSkillKey(t *testing.T) {
	cases := map[string]string{
		"React.js":        "reactjs",
		"Problem Solving": "problem-solving",
		"C++":             "cpp",
		"C#/.NET":         "csharpdotnet",
		"hello_world.js":  "helloworld-js",
		"数据结构":            "数据结构",
	}
	for in, want := range cases {
		if got := SkillKey(in); got != want {
			t.Fatalf("SkillKey(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestParseRejectsBadTiers(t *testing.T) {
	bad := []string{
		"badge_tiers: [{threshold: 0, label: x}]",
		"badge_tiers: [{threshold: 150, label: x}]",
		"badge_tiers: [{threshold: 50, label: a}, {threshold: 50, label: b}]",
		"activities: {x: {increment: -1, skills: [A]}}",
	}
	for _, in := range bad {
		if _, err := Parse([]byte(in)); err == nil {
			t.Fatalf("Parse(%q) should fail", in)
		}
	}
}

func TestParseDefaults(t *testing.T) {
	tx, err := Parse([]byte("activities: {read: {increment: 2, skills: [Reading]}}"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if tx.Version() != 1 || tx.ViewActivity() != "content_viewed" {
		t.Fatalf("defaults not applied: version=%d view=%q", tx.Version(), tx.ViewActivity())
	}
	if !tx.IsViewActivity("Content_Viewed") {
		t.Fatalf("IsViewActivity should be case-insensitive")
	}
}

func TestWatcherReloadKeepsOldOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	if err := os.WriteFile(path, []byte("version: 2\nactivities: {read: {increment: 2, skills: [Reading]}}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	provider := NewProvider(nil)
	reloaded := 0
	w, err := NewWatcher(provider, path, func(*Taxonomy) { reloaded++ })
	if err != nil {
		t.Fatalf("NewWatcher error: %v", err)
	}
	defer w.Close()

	if err := w.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if provider.Current().Version() != 2 || reloaded != 1 {
		t.Fatalf("version=%d reloaded=%d", provider.Current().Version(), reloaded)
	}

	if err := os.WriteFile(path, []byte("badge_tiers: [{threshold: 500}]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Reload(); err == nil {
		t.Fatalf("Reload should fail for invalid file")
	}
	if provider.Current().Version() != 2 {
		t.Fatalf("invalid reload must keep previous taxonomy")
	}
}
