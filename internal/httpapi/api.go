package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yuqie6/StudyMirror/internal/dto"
	"github.com/yuqie6/StudyMirror/internal/schema"
	"github.com/yuqie6/StudyMirror/internal/service"
)

const maxListLimit = 100

func (a *apiServer) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), a.requestTimeout)
}

func (a *apiServer) requireWritable(w http.ResponseWriter) bool {
	if err := a.rt.RequireWritable(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return false
	}
	return true
}

func userIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id 不能为空")
		return "", false
	}
	return userID, true
}

// ========== activities ==========

func (a *apiServer) logActivity(w http.ResponseWriter, r *http.Request) {
	if !a.requireWritable(w) {
		return
	}

	var req dto.LogActivityRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体格式错误: "+err.Error())
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if req.Context != nil {
		if err := a.validate.Struct(req.Context); err != nil {
			writeError(w, http.StatusBadRequest, validationMessage(err))
			return
		}
	}

	in := service.ActivityInput{
		UserID:       req.UserID,
		ActivityType: req.ActivityType,
		ContentID:    req.ContentID,
	}
	if req.Context != nil {
		in.Context = schema.ActivityContext{
			Language:          req.Context.Language,
			Topic:             req.Context.Topic,
			IncrementOverride: req.Context.IncrementOverride,
		}
	}
	if req.OccurredAt > 0 {
		in.OccurredAt = time.UnixMilli(req.OccurredAt)
	}

	if isTruthy(r.URL.Query().Get("sync")) || a.rt.Dispatcher == nil {
		ctx, cancel := a.withTimeout(r)
		defer cancel()
		out, err := a.rt.Services.Pipeline.LogActivity(ctx, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOutcomeDTO(out))
		return
	}

	if !a.rt.Dispatcher.Submit(in) {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "事件队列已满，请稍后重试")
		return
	}
	writeJSON(w, http.StatusAccepted, dto.LogActivityAcceptedDTO{Accepted: true})
}

// ========== catalog ==========

func (a *apiServer) listCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.withTimeout(r)
	defer cancel()

	items, err := a.rt.Repos.Catalog.ListItems(ctx)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toContentItemDTOs(items))
}

func (a *apiServer) importCatalog(w http.ResponseWriter, r *http.Request) {
	if !a.requireWritable(w) {
		return
	}

	var req dto.ImportCatalogRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体格式错误: "+err.Error())
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	ctx, cancel := a.withTimeout(r)
	defer cancel()

	items := CatalogItemsFromDTO(req.Items)
	if err := a.rt.Repos.Catalog.UpsertItems(ctx, items); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": len(items)})
}

// CatalogItemsFromDTO DTO -> 持久化模型（CLI 导入复用）
func CatalogItemsFromDTO(in []dto.ContentItemDTO) []schema.ContentItem {
	out := make([]schema.ContentItem, 0, len(in))
	for _, it := range in {
		itemType := strings.TrimSpace(it.ItemType)
		if itemType == "" {
			itemType = "course"
		}
		out = append(out, schema.ContentItem{
			ID:         strings.TrimSpace(it.ID),
			Title:      strings.TrimSpace(it.Title),
			Category:   strings.TrimSpace(it.Category),
			Path:       strings.TrimSpace(it.Path),
			Difficulty: strings.TrimSpace(it.Difficulty),
			ItemType:   itemType,
		})
	}
	return out
}

// ========== users ==========

func (a *apiServer) listActivities(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), 20, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := a.withTimeout(r)
	defer cancel()

	events, err := a.rt.Services.Pipeline.RecentActivities(ctx, userID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityDTOs(events))
}

func (a *apiServer) listSkills(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := a.withTimeout(r)
	defer cancel()

	rows, err := a.rt.Services.Progress.ListProgress(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressDTOs(rows))
}

func (a *apiServer) listBadges(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := a.withTimeout(r)
	defer cancel()

	badges, err := a.rt.Services.Badges.ListAwarded(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBadgeDTOs(badges))
}

func (a *apiServer) sweepBadges(w http.ResponseWriter, r *http.Request) {
	if !a.requireWritable(w) {
		return
	}
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := a.withTimeout(r)
	defer cancel()

	earned, err := a.rt.Services.Badges.Sweep(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBadgeDTOs(earned))
}

func (a *apiServer) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := a.withTimeout(r)
	defer cancel()

	p, err := a.rt.Services.Recommend.Profile(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PreferenceProfileDTO{
		Category:   p.Category,
		Path:       p.Path,
		Difficulty: p.Difficulty,
	})
}

func (a *apiServer) listRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), 0, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := a.withTimeout(r)
	defer cancel()

	recs, err := a.rt.Services.Recommend.GetRecommendations(ctx, userID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecommendationDTOs(recs))
}

func (a *apiServer) regenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	if !a.requireWritable(w) {
		return
	}
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := a.withTimeout(r)
	defer cancel()

	recs, err := a.rt.Services.Pipeline.RegenerateRecommendations(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecommendationDTOs(recs))
}

func (a *apiServer) markRecommendationViewed(w http.ResponseWriter, r *http.Request) {
	if !a.requireWritable(w) {
		return
	}
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	ctx, cancel := a.withTimeout(r)
	defer cancel()

	if err := a.rt.Services.Recommend.MarkViewed(ctx, userID, itemID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
