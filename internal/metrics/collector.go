// Package metrics exposes Prometheus instrumentation for the try-on pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several app instances (tests) can
// coexist without duplicate registration panics.
type Collector struct {
	registry *prometheus.Registry

	jobsTotal       *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	predictionPolls *prometheus.CounterVec
	processRuns     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// NewCollector creates a collector under the given namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Try-on jobs by strategy and terminal status",
			},
			[]string{"strategy", "status", "kind"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Wall time from dispatch to terminal state",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"strategy"},
		),
		predictionPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prediction_polls_total",
				Help:      "Remote prediction status queries by observed status",
			},
			[]string{"status"},
		),
		processRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "process_runs_total",
				Help:      "Local process invocations by phase and exit result",
			},
			[]string{"phase", "result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"method", "route", "status"},
		),
	}

	reg.MustRegister(
		c.jobsTotal,
		c.jobDuration,
		c.predictionPolls,
		c.processRuns,
		c.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// RecordJob records a job reaching a terminal state.
func (c *Collector) RecordJob(strategy, status, kind string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.jobsTotal.WithLabelValues(strategy, status, kind).Inc()
	c.jobDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// RecordPoll records one prediction status query.
func (c *Collector) RecordPoll(status string) {
	if c == nil {
		return
	}
	c.predictionPolls.WithLabelValues(status).Inc()
}

// RecordProcess records a child process exit.
func (c *Collector) RecordProcess(phase string, ok bool) {
	if c == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	c.processRuns.WithLabelValues(phase, result).Inc()
}

// RecordRequest records a served HTTP request.
func (c *Collector) RecordRequest(method, route string, status int) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Registry exposes the underlying registry for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
