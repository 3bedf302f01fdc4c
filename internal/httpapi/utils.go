package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yuqie6/StudyMirror/internal/dto"
	"github.com/yuqie6/StudyMirror/internal/schema"
	"github.com/yuqie6/StudyMirror/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// writeServiceError 按哨兵错误映射状态码
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidActivity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTransient):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func readJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// validationMessage 把 validator 错误压成一行
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return "参数校验失败: " + strings.Join(parts, "; ")
}

func parseLimit(value string, def, max int) (int, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit 必须是非负整数")
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func toActivityDTOs(events []schema.ActivityEvent) []dto.ActivityEventDTO {
	out := make([]dto.ActivityEventDTO, 0, len(events))
	for _, e := range events {
		item := dto.ActivityEventDTO{
			ID:           e.ID,
			ActivityType: e.ActivityType,
			ContentID:    e.ContentID,
			OccurredAt:   e.OccurredAt.UnixMilli(),
		}
		if c := e.Context; c.Language != "" || c.Topic != "" || c.IncrementOverride != nil {
			item.Context = &dto.ActivityContextDTO{Language: c.Language, Topic: c.Topic, IncrementOverride: c.IncrementOverride}
		}
		out = append(out, item)
	}
	return out
}

func toProgressDTOs(rows []schema.SkillProgress) []dto.SkillProgressDTO {
	out := make([]dto.SkillProgressDTO, 0, len(rows))
	for _, sp := range rows {
		out = append(out, dto.SkillProgressDTO{
			SkillName:   sp.SkillName,
			Progress:    sp.Progress,
			LastUpdated: sp.LastUpdated.UnixMilli(),
		})
	}
	return out
}

func toBadgeDTOs(badges []schema.AwardedBadge) []dto.AwardedBadgeDTO {
	out := make([]dto.AwardedBadgeDTO, 0, len(badges))
	for _, b := range badges {
		out = append(out, dto.AwardedBadgeDTO{
			BadgeID:   b.BadgeID,
			SkillName: b.SkillName,
			Threshold: b.Threshold,
			Label:     b.Label,
			EarnedAt:  b.EarnedAt.UnixMilli(),
		})
	}
	return out
}

func toRecommendationDTOs(recs []schema.Recommendation) []dto.RecommendationDTO {
	out := make([]dto.RecommendationDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, dto.RecommendationDTO{
			ItemID:         rec.ItemID,
			ItemType:       rec.ItemType,
			RelevanceScore: rec.RelevanceScore,
			Rank:           rec.Rank,
			IsViewed:       rec.IsViewed,
			Generation:     rec.Generation,
		})
	}
	return out
}

func toContentItemDTOs(items []schema.ContentItem) []dto.ContentItemDTO {
	out := make([]dto.ContentItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, dto.ContentItemDTO{
			ID:         it.ID,
			Title:      it.Title,
			Category:   it.Category,
			Path:       it.Path,
			Difficulty: it.Difficulty,
			ItemType:   it.ItemType,
		})
	}
	return out
}

func toOutcomeDTO(out *service.ActivityOutcome) dto.ActivityOutcomeDTO {
	res := dto.ActivityOutcomeDTO{
		EventID:                    out.Event.ID,
		Known:                      out.Known,
		Progress:                   toProgressDTOs(out.Progress),
		NewBadges:                  toBadgeDTOs(out.NewBadges),
		RecommendationsRegenerated: out.RecommendationsRegenerated,
		RecommendationCount:        out.RecommendationCount,
	}
	for _, err := range []error{out.MasteryErr, out.RecommendErr} {
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
		}
	}
	return res
}
