package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evtracker/internal/models"
)

const metricPrefix = "evtracker_"

const (
	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	importRuns     *prometheus.CounterVec
	importSessions *prometheus.CounterVec
	importLatency  prometheus.Histogram
)

// Init registers import metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		importRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_runs_total",
				Help: "Total import runs by result",
			},
			[]string{"result"},
		)
		importSessions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_sessions_total",
				Help: "Sessions handled by import runs, by outcome",
			},
			[]string{"outcome"},
		)
		importLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "import_duration_seconds",
				Help:    "Import run duration",
				Buckets: prometheus.DefBuckets,
			},
		)

		prometheus.MustRegister(importRuns, importSessions, importLatency)
	})
}

// ObserveRun records one finished import run.
func ObserveRun(summary models.ImportSummary, elapsed time.Duration, failed bool) {
	if importRuns == nil {
		return
	}
	result := resultSuccess
	if failed {
		result = resultError
	}
	importRuns.WithLabelValues(result).Inc()
	importLatency.Observe(elapsed.Seconds())

	importSessions.WithLabelValues("detected").Add(float64(summary.Detected))
	importSessions.WithLabelValues("inserted").Add(float64(summary.Inserted))
	importSessions.WithLabelValues("updated").Add(float64(summary.Updated))
	importSessions.WithLabelValues("skipped").Add(float64(summary.Skipped))
	importSessions.WithLabelValues("error").Add(float64(summary.Errors))
}

// Handler exposes the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
