package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the analytics service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	PlaybooksGenerated *prometheus.CounterVec
	VariantsGenerated  *prometheus.CounterVec
	ExperimentVerdicts *prometheus.CounterVec
	AlertsCreated      *prometheus.CounterVec
	AlertCheckRuns     *prometheus.CounterVec
	JobsProcessed      *prometheus.CounterVec
}

// NewMetrics registers every collector on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		PlaybooksGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playbooks_generated_total",
			Help: "Playbooks generated by format",
		}, []string{"format"}),
		VariantsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playbook_variants_changed_total",
			Help: "Variant rows written by replace-set action",
		}, []string{"action"}),
		ExperimentVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "experiment_verdicts_total",
			Help: "Experiment result computations by significance",
		}, []string{"significant"}),
		AlertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alerts_created_total",
			Help: "Alerts inserted by type and severity",
		}, []string{"type", "severity"}),
		AlertCheckRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alert_check_runs_total",
			Help: "Scheduled alert checks by outcome",
		}, []string{"outcome"}),
		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_jobs_processed_total",
			Help: "Queue jobs by type and outcome",
		}, []string{"type", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.PlaybooksGenerated,
		m.VariantsGenerated,
		m.ExperimentVerdicts,
		m.AlertsCreated,
		m.AlertCheckRuns,
		m.JobsProcessed,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) IncPlaybooks(format string) {
	if m == nil {
		return
	}
	m.PlaybooksGenerated.WithLabelValues(format).Inc()
}

func (m *Metrics) AddVariants(action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.VariantsGenerated.WithLabelValues(action).Add(float64(n))
}

func (m *Metrics) IncVerdict(significant bool) {
	if m == nil {
		return
	}
	label := "false"
	if significant {
		label = "true"
	}
	m.ExperimentVerdicts.WithLabelValues(label).Inc()
}

func (m *Metrics) IncAlert(alertType, severity string) {
	if m == nil {
		return
	}
	m.AlertsCreated.WithLabelValues(alertType, severity).Inc()
}

func (m *Metrics) IncAlertCheck(outcome string) {
	if m == nil {
		return
	}
	m.AlertCheckRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncJob(jobType, outcome string) {
	if m == nil {
		return
	}
	m.JobsProcessed.WithLabelValues(jobType, outcome).Inc()
}
