package service

import (
	"math"
	"testing"
)

func TestBuildPreferenceProfileNormalizes(t *testing.T) {
	catalog := sampleCatalog()
	// f2 重复浏览两次，unknown 不在目录中
	profile := BuildPreferenceProfile(catalog, []string{"b1", "f2", "f2", "unknown"})

	for name, m := range map[string]map[string]float64{
		"category":   profile.Category,
		"path":       profile.Path,
		"difficulty": profile.Difficulty,
	} {
		sum := 0.0
		for _, v := range m {
			sum += v
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("%s weights sum=%v, want 1", name, sum)
		}
	}

	if math.Abs(profile.Category["Frontend"]-2.0/3.0) > 1e-9 {
		t.Fatalf("Frontend=%v, want 2/3", profile.Category["Frontend"])
	}
	if profile.Path["Web Development"] != 1 {
		t.Fatalf("path=%v", profile.Path)
	}
}

func TestBuildPreferenceProfileUnknownOnly(t *testing.T) {
	profile := BuildPreferenceProfile(sampleCatalog(), []string{"nope", "missing"})
	if !profile.Empty() {
		t.Fatalf("profile should be empty: %+v", profile)
	}
}
