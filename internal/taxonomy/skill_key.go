package taxonomy

import (
	"strings"
	"unicode"
)

// SkillKey 统一技能 Key 格式（稳定 slug 策略），用于去重与徽章 ID
func SkillKey(name string) string {
	if name == "" {
		return ""
	}
	key := strings.ToLower(strings.TrimSpace(name))

	// 常见特殊符号处理（在空格转换之前，按固定顺序替换，避免 map 遍历导致不稳定）
	orderedReplacements := []struct {
		old string
		new string
	}{
		// 更具体的后缀优先
		{"react.js", "reactjs"},
		{"vue.js", "vuejs"},
		{"next.js", "nextjs"},
		{"node.js", "nodejs"},
		// 语言/平台别名
		{"c++", "cpp"},
		{"c#", "csharp"},
		{".net", "dotnet"},
		// 通用后缀最后处理，避免误伤上面的替换结果
		{".js", "-js"},
		{".ts", "-ts"},
	}
	for _, rep := range orderedReplacements {
		key = strings.ReplaceAll(key, rep.old, rep.new)
	}

	key = strings.ReplaceAll(key, " ", "-")

	// 移除其他特殊字符（保留字母、数字、连字符；非 ASCII 字母同样保留）
	var result strings.Builder
	for _, r := range key {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
