package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

type recordingLogger struct {
	mu    sync.Mutex
	seen  map[string][]string
	block chan struct{}
}

func (l *recordingLogger) LogActivity(ctx context.Context, in ActivityInput) (*ActivityOutcome, error) {
	if l.block != nil {
		<-l.block
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen == nil {
		l.seen = make(map[string][]string)
	}
	l.seen[in.UserID] = append(l.seen[in.UserID], in.ContentID)
	return &ActivityOutcome{}, nil
}

func TestDispatcherKeepsPerUserOrder(t *testing.T) {
	logger := &recordingLogger{}
	d := NewDispatcher(logger, &DispatcherConfig{Workers: 3, QueueSize: 100})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	users := []string{"alice", "bob", "carol", "dave"}
	for i := 0; i < 20; i++ {
		for _, u := range users {
			if !d.Submit(ActivityInput{UserID: u, ActivityType: "content_viewed", ContentID: fmt.Sprintf("c%02d", i)}) {
				t.Fatalf("submit rejected")
			}
		}
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	for _, u := range users {
		got := logger.seen[u]
		if len(got) != 20 {
			t.Fatalf("%s processed=%d, want 20", u, len(got))
		}
		for i, id := range got {
			if id != fmt.Sprintf("c%02d", i) {
				t.Fatalf("%s out of order at %d: %v", u, i, got)
			}
		}
	}
	if st := d.Stats(); st.Processed != 80 || st.Dropped != 0 || st.Running {
		t.Fatalf("stats=%+v", st)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	logger := &recordingLogger{block: make(chan struct{})}
	d := NewDispatcher(logger, &DispatcherConfig{Workers: 1, QueueSize: 1})

	// 未启动时 worker 不消费，第二个事件必然溢出
	if !d.Submit(ActivityInput{UserID: "u1", ContentID: "a"}) {
		t.Fatalf("first submit should succeed")
	}
	if d.Submit(ActivityInput{UserID: "u1", ContentID: "b"}) {
		t.Fatalf("second submit should be dropped")
	}
	if d.Stats().Dropped != 1 {
		t.Fatalf("dropped=%d, want 1", d.Stats().Dropped)
	}

	close(logger.block)
	_ = d.Start(context.Background())
	_ = d.Stop()
	if d.Submit(ActivityInput{UserID: "u1"}) {
		t.Fatalf("submit after stop should be rejected")
	}
	if got := logger.seen["u1"]; len(got) != 1 || got[0] != "a" {
		t.Fatalf("processed=%v, want [a]", got)
	}
}
