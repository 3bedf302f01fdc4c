package schema

import "time"

// ContentItem 内容目录条目（对流水线只读）
// 数据量级：百级到千级
type ContentItem struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	Title      string    `gorm:"size:255" json:"title,omitempty" yaml:"title"`
	Category   string    `gorm:"size:100;index" json:"category" yaml:"category"`
	Path       string    `gorm:"size:100;index" json:"path" yaml:"path"`
	Difficulty string    `gorm:"size:32" json:"difficulty" yaml:"difficulty"`
	ItemType   string    `gorm:"size:32;default:course" json:"item_type" yaml:"item_type"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at" yaml:"-"`
}

// TableName 指定表名
func (ContentItem) TableName() string {
	return "content_items"
}
