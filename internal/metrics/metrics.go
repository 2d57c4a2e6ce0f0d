// Package metrics exposes Prometheus counters for sandbox runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sudankdk/refix-sandbox/internal/model"
)

const namespace = "refix_sandbox"

// Recorder is safe to use as a nil pointer; every method is then a no-op.
type Recorder struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cleanup  *prometheus.CounterVec
	inflight prometheus.Gauge
}

func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Sandbox runs by profile and verdict.",
		}, []string{"profile", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a sandbox run, workspace to cleanup.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 90, 120},
		}, []string{"profile"}),
		cleanup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Workspaces or containers that could not be removed.",
		}, []string{"resource"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Runs currently holding a workspace.",
		}),
	}
	reg.MustRegister(r.runs, r.duration, r.cleanup, r.inflight)
	return r
}

func (r *Recorder) ObserveRun(profile string, status model.Status, d time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(profile, string(status)).Inc()
	r.duration.WithLabelValues(profile).Observe(d.Seconds())
}

func (r *Recorder) CleanupFailed(resource string) {
	if r == nil {
		return
	}
	r.cleanup.WithLabelValues(resource).Inc()
}

// RunStarted bumps the in-flight gauge; call the returned func when the run ends.
func (r *Recorder) RunStarted() func() {
	if r == nil {
		return func() {}
	}
	r.inflight.Inc()
	return r.inflight.Dec
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
