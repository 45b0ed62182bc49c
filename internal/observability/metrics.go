package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	storeActivations *prometheus.CounterVec
	storeOpenErrors  prometheus.Counter

	ingestDecisions *prometheus.CounterVec
	ingestDuration  prometheus.Histogram

	recallInjections  prometheus.Counter
	recallCandidates  prometheus.Histogram
	recallDuration    prometheus.Histogram
	recallErrorsTotal prometheus.Counter

	searchDuration prometheus.Histogram
	addDuration    prometheus.Histogram
	recordsTotal   prometheus.Gauge

	toolExecutionTotal *prometheus.CounterVec
	judgeVerdicts      *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			storeActivations: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "store_activations_total",
					Help: "Total store activations by outcome (opened, reused, failed).",
				},
				[]string{"outcome"},
			),
			storeOpenErrors: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "store_open_errors_total",
					Help: "Total failed store opens.",
				},
			),
			ingestDecisions: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ingest_decisions_total",
					Help: "Total auto-ingest decisions by outcome (stored, rejected, error).",
				},
				[]string{"outcome"},
			),
			ingestDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "ingest_duration_seconds",
					Help:    "Auto-ingest pipeline duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			recallInjections: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "recall_injections_total",
					Help: "Total compaction events that injected a memory block.",
				},
			),
			recallCandidates: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "recall_candidates",
					Help:    "Candidate count per recall before truncation.",
					Buckets: []float64{0, 1, 2, 5, 10, 17, 25, 50},
				},
			),
			recallDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "recall_duration_seconds",
					Help:    "Recall pipeline duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			recallErrorsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "recall_errors_total",
					Help: "Total recall pipelines that failed and injected nothing.",
				},
			),
			searchDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "memory_search_duration_seconds",
					Help:    "Hybrid search duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			addDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "memory_add_duration_seconds",
					Help:    "Record add duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			recordsTotal: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "memory_records_total",
					Help: "Total records in the active store.",
				},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			judgeVerdicts: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "judge_verdicts_total",
					Help: "Total judgment evaluations by verdict.",
				},
				[]string{"verdict"},
			),
		}

		prometheus.MustRegister(
			m.storeActivations,
			m.storeOpenErrors,
			m.ingestDecisions,
			m.ingestDuration,
			m.recallInjections,
			m.recallCandidates,
			m.recallDuration,
			m.recallErrorsTotal,
			m.searchDuration,
			m.addDuration,
			m.recordsTotal,
			m.toolExecutionTotal,
			m.judgeVerdicts,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// MetricsHandler returns an HTTP handler exposing the metrics.
func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordStoreActivation(outcome string) {
	getMetrics().storeActivations.WithLabelValues(outcome).Inc()
}

func RecordStoreOpenError() {
	getMetrics().storeOpenErrors.Inc()
}

func RecordIngestDecision(outcome string, duration time.Duration) {
	m := getMetrics()
	m.ingestDecisions.WithLabelValues(outcome).Inc()
	m.ingestDuration.Observe(duration.Seconds())
}

func RecordRecall(candidates int, injected bool, duration time.Duration) {
	m := getMetrics()
	m.recallCandidates.Observe(float64(candidates))
	m.recallDuration.Observe(duration.Seconds())
	if injected {
		m.recallInjections.Inc()
	}
}

func RecordRecallError() {
	getMetrics().recallErrorsTotal.Inc()
}

func RecordSearch(duration time.Duration) {
	getMetrics().searchDuration.Observe(duration.Seconds())
}

func RecordAdd(duration time.Duration) {
	getMetrics().addDuration.Observe(duration.Seconds())
}

func SetRecordsTotal(total int) {
	getMetrics().recordsTotal.Set(float64(total))
}

func RecordToolExecution(tool string, success bool) {
	status := "error"
	if success {
		status = "success"
	}
	getMetrics().toolExecutionTotal.WithLabelValues(tool, status).Inc()
}

func RecordJudgeVerdict(verdict string) {
	getMetrics().judgeVerdicts.WithLabelValues(verdict).Inc()
}
