// Package metrics defines Prometheus metrics for the auto-send scheduler,
// dispatch outcomes and mail delivery.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scheduler metrics
	AutoSendCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autosend_cycles_total",
		Help: "Total number of auto-send processing cycles run",
	}, []string{"trigger"})
	AutoSendBusyRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autosend_busy_rejections_total",
		Help: "Total number of cycles rejected because another cycle was in progress",
	})
	AutoSendCycleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autosend_cycle_duration_seconds",
		Help:    "Duration of auto-send processing cycles",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
	AutoSendEligible = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "autosend_eligible_submissions",
		Help: "Number of eligible submissions found by the last cycle",
	})

	// Dispatch outcome per submission (sent, claim_conflict, missing_draft, ...)
	DispatchOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autosend_dispatch_outcomes_total",
		Help: "Total number of dispatch attempts grouped by outcome",
	}, []string{"outcome"})

	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autosend_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"transport"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autosend_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"transport"})

	// Admin actions on submissions (approve, hold, cancel, escalate)
	AdminActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autosend_admin_actions_total",
		Help: "Total number of administrator status changes",
	}, []string{"action"})
)

func init() {
	prometheus.MustRegister(AutoSendCycles)
	prometheus.MustRegister(AutoSendBusyRejections)
	prometheus.MustRegister(AutoSendCycleDuration)
	prometheus.MustRegister(AutoSendEligible)
	prometheus.MustRegister(DispatchOutcomes)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(AdminActions)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
