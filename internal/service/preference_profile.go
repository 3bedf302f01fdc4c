package service

import "github.com/yuqie6/StudyMirror/internal/schema"

// PreferenceProfile 用户在三个维度上的兴趣分布；每个 map 之和为 1，或为空
type PreferenceProfile struct {
	Category   map[string]float64 `json:"category_weights"`
	Path       map[string]float64 `json:"path_weights"`
	Difficulty map[string]float64 `json:"difficulty_weights"`
}

// Empty 没有任何有效浏览记录
func (p PreferenceProfile) Empty() bool {
	return len(p.Category) == 0 && len(p.Path) == 0 && len(p.Difficulty) == 0
}

// BuildPreferenceProfile 根据浏览历史构建偏好画像。
// 不在目录中的 content_id 直接丢弃；重复浏览按次数计入。
func BuildPreferenceProfile(catalog []schema.ContentItem, viewedIDs []string) PreferenceProfile {
	byID := make(map[string]*schema.ContentItem, len(catalog))
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}

	category := make(map[string]float64)
	path := make(map[string]float64)
	difficulty := make(map[string]float64)
	for _, id := range viewedIDs {
		item, ok := byID[id]
		if !ok {
			continue
		}
		tally(category, item.Category)
		tally(path, item.Path)
		tally(difficulty, item.Difficulty)
	}

	return PreferenceProfile{
		Category:   normalize(category),
		Path:       normalize(path),
		Difficulty: normalize(difficulty),
	}
}

func tally(m map[string]float64, key string) {
	if key == "" {
		return
	}
	m[key]++
}

// normalize 计数 -> 占比；总数为 0 时返回空 map
func normalize(counts map[string]float64) map[string]float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	out := make(map[string]float64, len(counts))
	if total == 0 {
		return out
	}
	for k, c := range counts {
		out[k] = c / total
	}
	return out
}
