// Package metrics exposes the Prometheus collectors used across the
// service. Collectors are package-level and registered on the default
// registry; the /metrics endpoint serves them via promhttp.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hr",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests by method, route pattern, and status code.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "hr",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request duration in seconds by method and route pattern.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "hr",
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Total requests rejected by the rate limiter.",
})

var LeaveSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hr",
	Subsystem: "leave",
	Name:      "submissions_total",
	Help:      "Total leave requests submitted by leave type.",
}, []string{"type"})

var LeaveDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hr",
	Subsystem: "leave",
	Name:      "decisions_total",
	Help:      "Total leave request decisions by outcome.",
}, []string{"decision"})

var OvertimeSubmissions = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "hr",
	Subsystem: "overtime",
	Name:      "submissions_total",
	Help:      "Total overtime requests submitted.",
})

var OvertimeDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hr",
	Subsystem: "overtime",
	Name:      "decisions_total",
	Help:      "Total overtime request decisions by outcome.",
}, []string{"decision"})

var BalanceResets = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hr",
	Subsystem: "admin",
	Name:      "balance_resets_total",
	Help:      "Total quota and overtime balance resets by kind.",
}, []string{"kind"})

var PayslipPDFs = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "hr",
	Subsystem: "payslips",
	Name:      "pdfs_generated_total",
	Help:      "Total payslip PDF documents generated.",
})

var JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hr",
	Subsystem: "jobs",
	Name:      "runs_total",
	Help:      "Total background job runs by job name and outcome.",
}, []string{"job", "status"})

var EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hr",
	Subsystem: "email",
	Name:      "sent_total",
	Help:      "Total notification emails by delivery outcome.",
}, []string{"status"})

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
