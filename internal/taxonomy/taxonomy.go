package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/yuqie6/StudyMirror/internal/schema"
	"go.yaml.in/yaml/v3"
)

//go:embed default_taxonomy.yaml
var defaultYAML []byte

const (
	defaultViewActivity = "content_viewed"
	defaultNoTopic      = "summary"
)

// ActivityRule 活动类型对应的基础增量与技能
type ActivityRule struct {
	Increment int      `yaml:"increment"`
	Skills    []string `yaml:"skills"`
}

// BadgeTier 徽章档位
type BadgeTier struct {
	Threshold int    `yaml:"threshold"`
	Label     string `yaml:"label"`
}

// File 分类表文件结构（YAML）
type File struct {
	Version      int                     `yaml:"version"`
	ViewActivity string                  `yaml:"view_activity"`
	NoTopic      string                  `yaml:"no_topic"`
	Activities   map[string]ActivityRule `yaml:"activities"`
	Languages    map[string][]string     `yaml:"languages"`
	BadgeTiers   []BadgeTier             `yaml:"badge_tiers"`
}

// Taxonomy 技能分类表（加载后只读，可在 goroutine 间共享）
type Taxonomy struct {
	version      int
	viewActivity string
	noTopic      string
	activities   map[string]ActivityRule
	languages    map[string][]string
	tiers        []BadgeTier
	canonical    map[string]string // skill-key -> 分类表中的写法
}

// Resolution 一次事件解析出的技能与增量
type Resolution struct {
	Known     bool
	Increment int
	Skills    []string
}

var loadDefault = sync.OnceValues(func() (*Taxonomy, error) {
	return Parse(defaultYAML)
})

// Default 返回内置分类表
func Default() *Taxonomy {
	t, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("内置技能分类表无效: %v", err))
	}
	return t
}

// Load 从文件加载分类表；path 为空时使用内置分类表
func Load(path string) (*Taxonomy, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取技能分类表失败: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析技能分类表 %s 失败: %w", path, err)
	}
	return t, nil
}

// Parse 解析并校验 YAML 分类表
func Parse(data []byte) (*Taxonomy, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return New(f)
}

// New 根据文件结构构建分类表
func New(f File) (*Taxonomy, error) {
	t := &Taxonomy{
		version:      f.Version,
		viewActivity: strings.TrimSpace(f.ViewActivity),
		noTopic:      strings.TrimSpace(f.NoTopic),
		activities:   make(map[string]ActivityRule, len(f.Activities)),
		languages:    make(map[string][]string, len(f.Languages)),
	}
	if t.version <= 0 {
		t.version = 1
	}
	if t.viewActivity == "" {
		t.viewActivity = defaultViewActivity
	}
	if t.noTopic == "" {
		t.noTopic = defaultNoTopic
	}

	for name, rule := range f.Activities {
		key := lookupKey(name)
		if key == "" {
			continue
		}
		if rule.Increment < 0 {
			return nil, fmt.Errorf("活动 %q 的增量不能为负数", name)
		}
		t.activities[key] = ActivityRule{Increment: rule.Increment, Skills: cleanSkills(rule.Skills)}
	}
	for lang, skills := range f.Languages {
		key := lookupKey(lang)
		if key == "" {
			continue
		}
		t.languages[key] = cleanSkills(skills)
	}

	tiers := append([]BadgeTier(nil), f.BadgeTiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Threshold < tiers[j].Threshold })
	for i, tier := range tiers {
		if tier.Threshold <= 0 || tier.Threshold > schema.MaxSkillProgress {
			return nil, fmt.Errorf("徽章档位阈值 %d 超出范围 (1-%d)", tier.Threshold, schema.MaxSkillProgress)
		}
		if i > 0 && tiers[i-1].Threshold == tier.Threshold {
			return nil, fmt.Errorf("徽章档位阈值 %d 重复", tier.Threshold)
		}
		if strings.TrimSpace(tier.Label) == "" {
			tiers[i].Label = fmt.Sprintf("Tier %d", tier.Threshold)
		}
	}
	t.tiers = tiers

	t.canonical = make(map[string]string)
	for _, skill := range t.KnownSkills() {
		t.canonical[SkillKey(skill)] = skill
	}
	return t, nil
}

// Version 分类表版本号
func (t *Taxonomy) Version() int { return t.version }

// ViewActivity 代表“浏览内容”的活动类型
func (t *Taxonomy) ViewActivity() string { return t.viewActivity }

// IsViewActivity 判断活动是否为浏览内容
func (t *Taxonomy) IsViewActivity(activityType string) bool {
	return lookupKey(activityType) == lookupKey(t.viewActivity)
}

// Rule 查询活动类型规则
func (t *Taxonomy) Rule(activityType string) (ActivityRule, bool) {
	rule, ok := t.activities[lookupKey(activityType)]
	return rule, ok
}

// LanguageSkills 语言 -> 技能；未映射时回退为语言本身
func (t *Taxonomy) LanguageSkills(language string) []string {
	language = strings.TrimSpace(language)
	if language == "" {
		return nil
	}
	if skills, ok := t.languages[lookupKey(language)]; ok {
		return append([]string(nil), skills...)
	}
	return []string{language}
}

// Resolve 解析事件涉及的技能与增量；未知活动类型返回空集合
func (t *Taxonomy) Resolve(activityType string, ctx schema.ActivityContext) Resolution {
	rule, ok := t.Rule(activityType)
	if !ok {
		return Resolution{}
	}

	candidates := append([]string(nil), rule.Skills...)
	candidates = append(candidates, t.LanguageSkills(ctx.Language)...)
	if topic := strings.TrimSpace(ctx.Topic); topic != "" && !strings.EqualFold(topic, t.noTopic) {
		candidates = append(candidates, topic)
	}

	increment := rule.Increment
	if ctx.IncrementOverride != nil {
		increment = *ctx.IncrementOverride
	}

	for i, s := range candidates {
		candidates[i] = t.Canonical(s)
	}

	return Resolution{
		Known:     true,
		Increment: increment,
		Skills:    dedupeSkills(candidates),
	}
}

// Canonical 同一 skill-key 统一为分类表中的写法；分类表未声明的技能原样返回
func (t *Taxonomy) Canonical(skillName string) string {
	skillName = strings.TrimSpace(skillName)
	if known, ok := t.canonical[SkillKey(skillName)]; ok {
		return known
	}
	return skillName
}

// Tiers 徽章档位（按阈值升序）
func (t *Taxonomy) Tiers() []BadgeTier {
	return append([]BadgeTier(nil), t.tiers...)
}

// BadgesFor 生成某技能的全部徽章定义（按阈值升序）
func (t *Taxonomy) BadgesFor(skillName string) []schema.BadgeDefinition {
	key := SkillKey(skillName)
	if key == "" {
		return nil
	}
	out := make([]schema.BadgeDefinition, 0, len(t.tiers))
	for _, tier := range t.tiers {
		out = append(out, schema.BadgeDefinition{
			ID:        BadgeID(skillName, tier.Threshold),
			SkillName: skillName,
			Threshold: tier.Threshold,
			Label:     tier.Label,
		})
	}
	return out
}

// KnownSkills 分类表中显式声明的所有技能（排序、去重）
func (t *Taxonomy) KnownSkills() []string {
	var all []string
	for _, rule := range t.activities {
		all = append(all, rule.Skills...)
	}
	for _, skills := range t.languages {
		all = append(all, skills...)
	}
	sort.Strings(all)
	return dedupeSkills(all)
}

// BadgeID 徽章 ID：<skill-key>-<threshold>
func BadgeID(skillName string, threshold int) string {
	return fmt.Sprintf("%s-%d", SkillKey(skillName), threshold)
}

func lookupKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func cleanSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// dedupeSkills 按 SkillKey 去重，保留首次出现的写法与顺序
func dedupeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := SkillKey(s)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
