package service

import (
	"sort"

	"github.com/yuqie6/StudyMirror/internal/schema"
)

// ScoringPolicy 推荐打分参数（可配置）
type ScoringPolicy struct {
	CategoryWeight   float64
	PathWeight       float64
	DifficultyWeight float64
	FloorScore       float64 // 冷启动：与任何偏好都不重叠时的兜底分
	TopN             int
}

// DefaultScoringPolicy 默认参数：类别与路径同等重要，难度为次要信号
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		CategoryWeight:   0.4,
		PathWeight:       0.4,
		DifficultyWeight: 0.2,
		FloorScore:       0.1,
		TopN:             10,
	}
}

// normalized 修正非法参数
func (p ScoringPolicy) normalized() ScoringPolicy {
	d := DefaultScoringPolicy()
	if p.CategoryWeight < 0 || p.PathWeight < 0 || p.DifficultyWeight < 0 ||
		p.CategoryWeight+p.PathWeight+p.DifficultyWeight == 0 {
		p.CategoryWeight, p.PathWeight, p.DifficultyWeight = d.CategoryWeight, d.PathWeight, d.DifficultyWeight
	}
	if p.FloorScore <= 0 {
		p.FloorScore = d.FloorScore
	}
	p.FloorScore = clamp(p.FloorScore, 0, 1)
	if p.TopN <= 0 {
		p.TopN = d.TopN
	}
	return p
}

// ScoredItem 打分结果
type ScoredItem struct {
	ItemID   string  `json:"item_id"`
	ItemType string  `json:"item_type"`
	Score    float64 `json:"relevance_score"`
}

// ScoreCatalog 为未浏览过的目录条目打分，按分数降序、item_id 升序排序后截取前 N 个。
// 结果只取决于输入，相同输入总是得到相同顺序。
func ScoreCatalog(policy ScoringPolicy, profile PreferenceProfile, catalog []schema.ContentItem, viewed map[string]struct{}) []ScoredItem {
	policy = policy.normalized()

	out := make([]ScoredItem, 0, len(catalog))
	seen := make(map[string]struct{}, len(catalog))
	for _, item := range catalog {
		if item.ID == "" {
			continue
		}
		if _, ok := viewed[item.ID]; ok {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}

		score := policy.CategoryWeight*profile.Category[item.Category] +
			policy.PathWeight*profile.Path[item.Path] +
			policy.DifficultyWeight*profile.Difficulty[item.Difficulty]
		if score == 0 {
			score = policy.FloorScore
		}
		out = append(out, ScoredItem{
			ItemID:   item.ID,
			ItemType: item.ItemType,
			Score:    clamp(score, 0, 1),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ItemID < out[j].ItemID
	})

	if len(out) > policy.TopN {
		out = out[:policy.TopN]
	}
	return out
}

// clamp 将数值限制在指定范围内
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
