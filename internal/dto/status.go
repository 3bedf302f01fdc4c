package dto

type StatusDTO struct {
	App          AppStatusDTO      `json:"app"`
	Storage      StorageStatusDTO  `json:"storage"`
	Taxonomy     TaxonomyStatusDTO `json:"taxonomy"`
	Pipeline     PipelineStatusDTO `json:"pipeline"`
	RecentErrors []RecentErrorDTO  `json:"recent_errors"`
}

type AppStatusDTO struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Build      string `json:"build,omitempty"`
	StartedAt  string `json:"started_at"`
	UptimeSec  int64  `json:"uptime_sec"`
	SafeMode   bool   `json:"safe_mode"`
	ConfigPath string `json:"config_path,omitempty"`
}

type StorageStatusDTO struct {
	Driver         string `json:"driver"`
	DBPath         string `json:"db_path,omitempty"`
	SchemaVersion  int    `json:"schema_version"`
	SafeModeReason string `json:"safe_mode_reason,omitempty"`
	ActivityEvents int64  `json:"activity_events"`
	CatalogItems   int64  `json:"catalog_items"`
}

type TaxonomyStatusDTO struct {
	Version      int    `json:"version"`
	Path         string `json:"path,omitempty"` // 为空表示内置分类表
	Watching     bool   `json:"watching"`
	ViewActivity string `json:"view_activity"`
	KnownSkills  int    `json:"known_skills"`
	BadgeTiers   int    `json:"badge_tiers"`
}

type PipelineStatusDTO struct {
	Dispatcher DispatcherStatusDTO `json:"dispatcher"`
	Scoring    ScoringStatusDTO    `json:"scoring"`
	EventBus   EventBusStatusDTO   `json:"event_bus"`
}

type DispatcherStatusDTO struct {
	Running         bool  `json:"running"`
	Workers         int   `json:"workers"`
	QueueLen        int   `json:"queue_len"`
	QueueCap        int   `json:"queue_cap"`
	Processed       int64 `json:"processed"`
	Failed          int64 `json:"failed"`
	Dropped         int64 `json:"dropped"`
	LastProcessedAt int64 `json:"last_processed_at"`
}

type ScoringStatusDTO struct {
	CategoryWeight   float64 `json:"category_weight"`
	PathWeight       float64 `json:"path_weight"`
	DifficultyWeight float64 `json:"difficulty_weight"`
	FloorScore       float64 `json:"floor_score"`
	TopN             int     `json:"top_n"`
	RegenerateOnView bool    `json:"regenerate_on_view"`
}

type EventBusStatusDTO struct {
	Subscribers int   `json:"subscribers"`
	Dropped     int64 `json:"dropped"`
}

type RecentErrorDTO struct {
	Time    string `json:"time,omitempty"`
	Level   string `json:"level,omitempty"`
	Message string `json:"message"`
	Raw     string `json:"raw,omitempty"`
}
