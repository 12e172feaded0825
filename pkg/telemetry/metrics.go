package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module wires pipeline metrics via Fx.
var Module = fx.Module("telemetry",
	fx.Provide(NewMetrics),
)

// Metrics exposes Prometheus observability primitives for the pipeline.
type Metrics struct {
	rowsIngested  *prometheus.CounterVec
	rowsDropped   *prometheus.CounterVec
	pointsAwarded prometheus.Counter
	degenerateBin *prometheus.CounterVec
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
}

// NewMetrics registers and returns Prometheus metrics for the pipeline.
func NewMetrics() *Metrics {
	rowsIngested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loyara_rows_ingested_total",
		Help: "Raw rows read per source table.",
	}, []string{"table"})

	rowsDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loyara_rows_dropped_total",
		Help: "Rows dropped during cleaning, by table and reason.",
	}, []string{"table", "reason"})

	pointsAwarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loyara_loyalty_points_awarded_total",
		Help: "Loyalty points accrued across all transactions.",
	})

	degenerateBin := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loyara_rfm_degenerate_bins_total",
		Help: "Metrics that fell back to the degenerate tertile rank.",
	}, []string{"metric"})

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loyara_pipeline_runs_total",
		Help: "Pipeline run outcomes.",
	}, []string{"status"})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "loyara_pipeline_run_duration_seconds",
		Help:    "End-to-end pipeline run duration.",
		Buckets: prometheus.DefBuckets,
	})

	prometheus.MustRegister(
		rowsIngested,
		rowsDropped,
		pointsAwarded,
		degenerateBin,
		runs,
		runDuration,
	)

	return &Metrics{
		rowsIngested:  rowsIngested,
		rowsDropped:   rowsDropped,
		pointsAwarded: pointsAwarded,
		degenerateBin: degenerateBin,
		runs:          runs,
		runDuration:   runDuration,
	}
}

// NewTestMetrics returns metrics bound to a private registry, for tests.
func NewTestMetrics() *Metrics {
	m := &Metrics{
		rowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyara_rows_ingested_total",
		}, []string{"table"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyara_rows_dropped_total",
		}, []string{"table", "reason"}),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loyara_loyalty_points_awarded_total",
		}),
		degenerateBin: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyara_rfm_degenerate_bins_total",
		}, []string{"metric"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyara_pipeline_runs_total",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "loyara_pipeline_run_duration_seconds",
		}),
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.rowsIngested, m.rowsDropped, m.pointsAwarded, m.degenerateBin, m.runs, m.runDuration)
	return m
}

func (m *Metrics) ObserveRowsIngested(table string, n int) {
	m.rowsIngested.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) ObserveRowsDropped(table, reason string, n int) {
	if n == 0 {
		return
	}
	m.rowsDropped.WithLabelValues(table, reason).Add(float64(n))
}

func (m *Metrics) ObservePointsAwarded(points int64) {
	m.pointsAwarded.Add(float64(points))
}

func (m *Metrics) ObserveDegenerateBin(metric string) {
	m.degenerateBin.WithLabelValues(metric).Inc()
}

func (m *Metrics) ObserveRun(status string, seconds float64) {
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(seconds)
}
