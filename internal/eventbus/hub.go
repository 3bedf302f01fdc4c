package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// 事件类型
const (
	TypeBadgeEarned            = "badge_earned"
	TypeProgressUpdated        = "progress_updated"
	TypeRecommendationsUpdated = "recommendations_updated"
	TypeTaxonomyReloaded       = "taxonomy_reloaded"
)

type Event struct {
	Type      string         `json:"type"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Hub 进程内广播；订阅者按 ctx 生命周期自动退订
type Hub struct {
	mu      sync.RWMutex
	subs    map[chan Event]string
	dropped atomic.Int64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]string)}
}

func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch, userID := range h.subs {
		if userID != "" && evt.UserID != "" && userID != evt.UserID {
			continue
		}
		select {
		case ch <- evt:
		default:
			// 慢消费者直接丢弃，避免阻塞事件处理链路
			h.dropped.Add(1)
		}
	}
}

// Subscribe 订阅全部事件
func (h *Hub) Subscribe(ctx context.Context, buffer int) <-chan Event {
	return h.SubscribeUser(ctx, "", buffer)
}

// SubscribeUser 只接收指定用户的事件（以及不带用户的全局事件）；userID 为空等同 Subscribe
func (h *Hub) SubscribeUser(ctx context.Context, userID string, buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	h.subs[ch] = userID
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Stats 当前订阅数与累计丢弃数
func (h *Hub) Stats() (subscribers int, dropped int64) {
	if h == nil {
		return 0, 0
	}
	h.mu.RLock()
	subscribers = len(h.subs)
	h.mu.RUnlock()
	return subscribers, h.dropped.Load()
}
