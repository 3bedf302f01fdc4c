package schema

import "testing"

func TestClampProgress(t *testing.T) {
	cases := map[int]int{
		-5:  0,
		0:   0,
		42:  42,
		100: 100,
		130: 100,
	}
	for in, want := range cases {
		if got := ClampProgress(in); got != want {
			t.Fatalf("ClampProgress(%d)=%d, want %d", in, got, want)
		}
	}
}

func TestActivityContextScan(t *testing.T) {
	var c ActivityContext
	if err := c.Scan(`{"language":"Python","topic":"loops","increment_override":7}`); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if c.Language != "Python" || c.Topic != "loops" {
		t.Fatalf("context=%+v", c)
	}
	if c.IncrementOverride == nil || *c.IncrementOverride != 7 {
		t.Fatalf("increment_override=%v, want 7", c.IncrementOverride)
	}

	// 空值/未知类型回退为空上下文
	c = ActivityContext{Language: "Go"}
	if err := c.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error: %v", err)
	}
	if c.Language != "" {
		t.Fatalf("Scan(nil) should reset context, got %+v", c)
	}
	if err := c.Scan(""); err != nil {
		t.Fatalf("Scan(\"\") error: %v", err)
	}
}
