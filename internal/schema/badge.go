package schema

import "time"

// BadgeDefinition 徽章定义（静态参考数据，由技能分类表的档位生成）
type BadgeDefinition struct {
	ID        string `gorm:"primaryKey;size:140" json:"id"`
	SkillName string `gorm:"size:100;index;not null" json:"skill_name"`
	Threshold int    `gorm:"not null" json:"threshold"`
	Label     string `gorm:"size:100" json:"label"`
}

// TableName 指定表名
func (BadgeDefinition) TableName() string {
	return "badge_definitions"
}

// AwardedBadge 已颁发徽章；同一用户同一徽章只会出现一次
type AwardedBadge struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:uniq_user_badge,priority:1" json:"user_id"`
	BadgeID   string    `gorm:"size:140;not null;uniqueIndex:uniq_user_badge,priority:2" json:"badge_id"`
	SkillName string    `gorm:"size:100" json:"skill_name"`
	Threshold int       `json:"threshold"`
	Label     string    `gorm:"size:100" json:"label"`
	EarnedAt  time.Time `gorm:"index" json:"earned_at"`
}

// TableName 指定表名
func (AwardedBadge) TableName() string {
	return "awarded_badges"
}
