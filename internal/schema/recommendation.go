package schema

import "time"

// Recommendation 个性化推荐
// 每次重新生成时整体替换，同一批次共享 Generation
type Recommendation struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID         string    `gorm:"size:64;not null;uniqueIndex:uniq_user_item,priority:1" json:"user_id"`
	ItemID         string    `gorm:"size:64;not null;uniqueIndex:uniq_user_item,priority:2" json:"item_id"`
	ItemType       string    `gorm:"size:32" json:"item_type"`
	RelevanceScore float64   `gorm:"not null" json:"relevance_score"`
	Rank           int       `gorm:"not null" json:"rank"`
	Generation     string    `gorm:"size:36;index" json:"generation"`
	IsViewed       bool      `gorm:"default:false" json:"is_viewed"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName 指定表名
func (Recommendation) TableName() string {
	return "recommendations"
}
