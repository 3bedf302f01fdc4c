package dto

// 注意：本包用于承载“对外契约”的 DTO（与 HTTP API / CLI 保持稳定）。
// 不要在这里放 GORM/持久化细节；内部持久化 schema 请见 internal/schema；业务逻辑收敛在 internal/service。

// ActivityContextDTO 事件上下文
type ActivityContextDTO struct {
	Language          string `json:"language,omitempty" validate:"max=64"`
	Topic             string `json:"topic,omitempty" validate:"max=100"`
	IncrementOverride *int   `json:"increment_override,omitempty" validate:"omitempty,min=0,max=100"`
}

// LogActivityRequestDTO POST /api/v1/activities
type LogActivityRequestDTO struct {
	UserID       string              `json:"user_id" validate:"required,max=64"`
	ActivityType string              `json:"activity_type" validate:"required,max=64"`
	ContentID    string              `json:"content_id,omitempty" validate:"max=64"`
	Context      *ActivityContextDTO `json:"context,omitempty"`
	OccurredAt   int64               `json:"occurred_at,omitempty" validate:"min=0"` // unix ms，为空取服务端时间
}

type LogActivityAcceptedDTO struct {
	Accepted bool `json:"accepted"`
}

// ActivityEventDTO GET /api/v1/users/{userID}/activities
type ActivityEventDTO struct {
	ID           string              `json:"id"`
	ActivityType string              `json:"activity_type"`
	ContentID    string              `json:"content_id,omitempty"`
	Context      *ActivityContextDTO `json:"context,omitempty"`
	OccurredAt   int64               `json:"occurred_at"`
}

type SkillProgressDTO struct {
	SkillName   string `json:"skill_name"`
	Progress    int    `json:"progress"`
	LastUpdated int64  `json:"last_updated"`
}

type AwardedBadgeDTO struct {
	BadgeID   string `json:"badge_id"`
	SkillName string `json:"skill_name"`
	Threshold int    `json:"threshold"`
	Label     string `json:"label"`
	EarnedAt  int64  `json:"earned_at"`
}

type RecommendationDTO struct {
	ItemID         string  `json:"item_id"`
	ItemType       string  `json:"item_type"`
	RelevanceScore float64 `json:"relevance_score"`
	Rank           int     `json:"rank"`
	IsViewed       bool    `json:"is_viewed"`
	Generation     string  `json:"generation,omitempty"`
}

// ActivityOutcomeDTO 同步处理（?sync=1）时返回的结果
type ActivityOutcomeDTO struct {
	EventID                    string             `json:"event_id"`
	Known                      bool               `json:"known"`
	Progress                   []SkillProgressDTO `json:"progress"`
	NewBadges                  []AwardedBadgeDTO  `json:"new_badges"`
	RecommendationsRegenerated bool               `json:"recommendations_regenerated"`
	RecommendationCount        int                `json:"recommendation_count"`
	Errors                     []string           `json:"errors,omitempty"`
}

type ContentItemDTO struct {
	ID         string `json:"id" yaml:"id" validate:"required,max=64"`
	Title      string `json:"title" yaml:"title" validate:"max=255"`
	Category   string `json:"category" yaml:"category" validate:"max=100"`
	Path       string `json:"path" yaml:"path" validate:"max=100"`
	Difficulty string `json:"difficulty" yaml:"difficulty" validate:"max=32"`
	ItemType   string `json:"item_type" yaml:"item_type" validate:"max=32"`
}

// ImportCatalogRequestDTO PUT /api/v1/catalog
type ImportCatalogRequestDTO struct {
	Items []ContentItemDTO `json:"items" yaml:"items" validate:"required,min=1,dive"`
}

type PreferenceProfileDTO struct {
	Category   map[string]float64 `json:"category_weights"`
	Path       map[string]float64 `json:"path_weights"`
	Difficulty map[string]float64 `json:"difficulty_weights"`
}
