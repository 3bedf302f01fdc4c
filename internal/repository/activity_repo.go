package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/yuqie6/StudyMirror/internal/schema"
	"gorm.io/gorm"
)

// ActivityEventRepository 行为事件仓储（只追加）
type ActivityEventRepository struct {
	db *gorm.DB
}

// NewActivityEventRepository 创建事件仓储
func NewActivityEventRepository(db *gorm.DB) *ActivityEventRepository {
	return &ActivityEventRepository{db: db}
}

// Create 追加单个事件
func (r *ActivityEventRepository) Create(ctx context.Context, event *schema.ActivityEvent) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("写入行为事件失败: %w", err)
	}
	return nil
}

// ListViewedContentIDs 按时间顺序返回用户浏览过的内容 ID（重复浏览保留多条）
func (r *ActivityEventRepository) ListViewedContentIDs(ctx context.Context, userID, viewActivity string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&schema.ActivityEvent{}).
		Where("user_id = ? AND activity_type = ? AND content_id <> ''", userID, strings.ToLower(strings.TrimSpace(viewActivity))).
		Order("occurred_at ASC, created_at ASC").
		Pluck("content_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("查询浏览历史失败: %w", err)
	}
	return ids, nil
}

// ListByUser 查询用户最近的事件（新的在前）
func (r *ActivityEventRepository) ListByUser(ctx context.Context, userID string, limit int) ([]schema.ActivityEvent, error) {
	var events []schema.ActivityEvent
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("occurred_at DESC, created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("查询行为事件失败: %w", err)
	}
	return events, nil
}

// Count 统计事件总数
func (r *ActivityEventRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&schema.ActivityEvent{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计行为事件失败: %w", err)
	}
	return count, nil
}
