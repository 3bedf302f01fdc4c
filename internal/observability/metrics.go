package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "study_mirror"

var (
	// activitiesLogged 按结果统计写入的学习事件。result: accepted | unknown_type | invalid | error
	activitiesLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "activities_total",
		Help:      "Activity events received by the pipeline",
	}, []string{"result"})

	// branchDuration 各分支耗时。branch: mastery | recommendation
	branchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "branch_duration_seconds",
		Help:      "Pipeline branch latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"branch", "status"})

	progressUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "progress",
		Name:      "updates_total",
		Help:      "Skill progress rows incremented",
	})

	badgesAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "badges",
		Name:      "awarded_total",
		Help:      "Badges newly awarded",
	}, []string{"label"})

	recommendationsRegenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recommendations",
		Name:      "regenerated_total",
		Help:      "Recommendation sets regenerated",
	})

	recommendationSetSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "recommendations",
		Name:      "set_size",
		Help:      "Number of items in each regenerated recommendation set",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
	})

	dispatcherDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dispatcher",
		Name:      "dropped_total",
		Help:      "Activities dropped because the dispatch queue was full",
	})

	dispatcherQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dispatcher",
		Name:      "queue_depth",
		Help:      "Activities waiting in the dispatch queues",
	})

	taxonomyReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "taxonomy",
		Name:      "reloads_total",
		Help:      "Skill taxonomy reload attempts",
	}, []string{"status"})
)

// RecordActivity 记录事件入口结果
func RecordActivity(result string) {
	activitiesLogged.WithLabelValues(result).Inc()
}

// ObserveBranch 记录分支耗时
func ObserveBranch(branch string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	branchDuration.WithLabelValues(branch, status).Observe(time.Since(started).Seconds())
}

func AddProgressUpdates(n int) {
	if n > 0 {
		progressUpdates.Add(float64(n))
	}
}

func IncBadgeAwarded(label string) {
	badgesAwarded.WithLabelValues(label).Inc()
}

func ObserveRecommendations(n int) {
	recommendationsRegenerated.Inc()
	recommendationSetSize.Observe(float64(n))
}

func IncDispatcherDropped() {
	dispatcherDropped.Inc()
}

func SetDispatcherQueueDepth(n int) {
	dispatcherQueueDepth.Set(float64(n))
}

// RecordTaxonomyReload status: ok | error
func RecordTaxonomyReload(err error) {
	if err != nil {
		taxonomyReloads.WithLabelValues("error").Inc()
		return
	}
	taxonomyReloads.WithLabelValues("ok").Inc()
}
