package schema

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ActivityEvent 用户学习行为事件（只追加，不修改不删除）
// 数据量级：万级/用户
type ActivityEvent struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	UserID       string          `gorm:"size:64;index:idx_activity_user_type,priority:1;not null" json:"user_id"`
	ActivityType string          `gorm:"size:64;index:idx_activity_user_type,priority:2;not null" json:"activity_type"`
	ContentID    string          `gorm:"size:64;index" json:"content_id,omitempty"`
	Context      ActivityContext `gorm:"type:text" json:"context"`
	OccurredAt   time.Time       `gorm:"index" json:"occurred_at"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (ActivityEvent) TableName() string {
	return "activity_events"
}

// ActivityContext 事件上下文（可选字段）
type ActivityContext struct {
	Language          string `json:"language,omitempty"`
	Topic             string `json:"topic,omitempty"`
	IncrementOverride *int   `json:"increment_override,omitempty"`
}

// Value 实现 driver.Valuer 接口
func (c ActivityContext) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner 接口
func (c *ActivityContext) Scan(value interface{}) error {
	if value == nil {
		*c = ActivityContext{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*c = ActivityContext{}
		return nil
	}
	if len(bytes) == 0 {
		*c = ActivityContext{}
		return nil
	}

	return json.Unmarshal(bytes, c)
}
