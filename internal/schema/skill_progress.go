package schema

import (
	"time"
)

const (
	// MaxSkillProgress 技能进度上限
	MaxSkillProgress = 100
)

// SkillProgress 用户技能掌握度
// 每个 (user_id, skill_name) 唯一；进度 0-100，只增不减
type SkillProgress struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID      string    `gorm:"size:64;not null;uniqueIndex:uniq_user_skill,priority:1" json:"user_id"`
	SkillName   string    `gorm:"size:100;not null;uniqueIndex:uniq_user_skill,priority:2" json:"skill_name"`
	Progress    int       `gorm:"not null;default:0" json:"progress"`
	LastUpdated time.Time `gorm:"index" json:"last_updated"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"-"`
}

// TableName 指定表名
func (SkillProgress) TableName() string {
	return "skill_progress"
}

// ClampProgress 将进度限制在 [0, 100]
func ClampProgress(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxSkillProgress {
		return MaxSkillProgress
	}
	return v
}
