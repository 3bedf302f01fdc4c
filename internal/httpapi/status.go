package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/yuqie6/StudyMirror/internal/dto"
	"github.com/yuqie6/StudyMirror/internal/observability"
	"github.com/yuqie6/StudyMirror/internal/pkg/buildinfo"
)

const recentErrorLimit = 20

func (a *apiServer) getStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.withTimeout(r)
	defer cancel()
	writeJSON(w, http.StatusOK, a.buildStatus(ctx))
}

// buildStatus 汇总运行状态；单项查询失败不影响整体输出
func (a *apiServer) buildStatus(ctx context.Context) dto.StatusDTO {
	rt := a.rt
	cfg := rt.Cfg

	out := dto.StatusDTO{
		App: dto.AppStatusDTO{
			Name:       cfg.App.Name,
			Version:    cfg.App.Version,
			Build:      buildinfo.Version + "+" + buildinfo.Commit,
			StartedAt:  a.startTime.Format(time.RFC3339),
			UptimeSec:  int64(time.Since(a.startTime).Seconds()),
			ConfigPath: a.cfgPath,
		},
		Storage: dto.StorageStatusDTO{
			Driver: cfg.Storage.Driver,
			DBPath: cfg.Storage.DBPath,
		},
		RecentErrors: observability.ReadRecentErrors(cfg.App.LogPath, recentErrorLimit),
	}

	if rt.DB != nil {
		out.App.SafeMode = rt.DB.SafeMode
		out.Storage.Driver = rt.DB.Driver
		out.Storage.SchemaVersion = rt.DB.SchemaVersion
		out.Storage.SafeModeReason = rt.DB.MigrationError
	}
	if rt.DB == nil || !rt.DB.SafeMode {
		if n, err := rt.Repos.Activity.Count(ctx); err == nil {
			out.Storage.ActivityEvents = n
		}
		if n, err := rt.Repos.Catalog.Count(ctx); err == nil {
			out.Storage.CatalogItems = n
		}
	}

	tax := rt.Taxonomy.Current()
	out.Taxonomy = dto.TaxonomyStatusDTO{
		Version:      tax.Version(),
		Path:         cfg.Taxonomy.Path,
		Watching:     rt.Watcher != nil,
		ViewActivity: tax.ViewActivity(),
		KnownSkills:  len(tax.KnownSkills()),
		BadgeTiers:   len(tax.Tiers()),
	}

	if rt.Dispatcher != nil {
		st := rt.Dispatcher.Stats()
		out.Pipeline.Dispatcher = dto.DispatcherStatusDTO{
			Running:         st.Running,
			Workers:         st.Workers,
			QueueLen:        st.QueueLen,
			QueueCap:        st.QueueCap,
			Processed:       st.Processed,
			Failed:          st.Failed,
			Dropped:         st.Dropped,
			LastProcessedAt: st.LastProcessedAt,
		}
	}

	policy := rt.Services.Recommend.Policy()
	out.Pipeline.Scoring = dto.ScoringStatusDTO{
		CategoryWeight:   policy.CategoryWeight,
		PathWeight:       policy.PathWeight,
		DifficultyWeight: policy.DifficultyWeight,
		FloorScore:       policy.FloorScore,
		TopN:             policy.TopN,
		RegenerateOnView: cfg.Recommend.RegenerateOnView,
	}

	subs, dropped := a.hub.Stats()
	out.Pipeline.EventBus = dto.EventBusStatusDTO{Subscribers: subs, Dropped: dropped}
	return out
}
