package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "cdr_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the indicator batch.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: outcome={success,error}
	PipelineRunning prometheus.Gauge
	RunDuration     prometheus.Histogram
	LastSuccess     prometheus.Gauge

	StageRows      *prometheus.GaugeVec   // labels: stage
	IndicatorRows  *prometheus.GaugeVec   // labels: indicator
	QualityWarning *prometheus.CounterVec // labels: indicator, kind
	LoaderWrites   *prometheus.CounterVec // labels: loader, outcome={success,retry,error}

	collectors []prometheus.Collector
}

func newMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed batch runs by outcome.",
		}, []string{"outcome"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a batch run is in progress, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract, compute, and load run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		StageRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_rows",
			Help:      "Rows leaving each stage of the last run.",
		}, []string{"stage"}),
		IndicatorRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indicator_rows",
			Help:      "Locality or national rows produced per indicator in the last run.",
		}, []string{"indicator"}),
		QualityWarning: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_quality_warnings_total",
			Help:      "Data quality warnings raised by indicator calculators.",
		}, []string{"indicator", "kind"}),
		LoaderWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loader_writes_total",
			Help:      "Loader attempts by loader and outcome.",
		}, []string{"loader", "outcome"}),
	}
	m.collectors = []prometheus.Collector{
		m.RunsTotal,
		m.PipelineRunning,
		m.RunDuration,
		m.LastSuccess,
		m.StageRows,
		m.IndicatorRows,
		m.QualityWarning,
		m.LoaderWrites,
	}
	return m
}

// NewMetrics creates and registers all batch metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// Push sends the batch metrics to a Prometheus Pushgateway. A one-shot batch
// exits before a scraper would see it, so the final state is pushed instead.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	pusher := push.New(url, job)
	for _, c := range m.collectors {
		pusher = pusher.Collector(c)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
