package utils

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ReqCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "app_request_duration_seconds",
			Help: "Request duration seconds",
		},
		[]string{"method", "path"},
	)

	ErrorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_errors_total",
			Help: "Total app errors",
		},
		[]string{"handler", "type"},
	)

	// AICallsTotal tracks gate decisions per tier, including paid-tier calls
	// that bypass the quota.
	AICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_ai_calls_total",
			Help: "AI calls by tier and gate outcome",
		},
		[]string{"tier", "outcome"},
	)

	BadgesAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_badges_awarded_total",
			Help: "Badges awarded by badge id",
		},
		[]string{"badge_id"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(ReqCount, ReqDuration, ErrorCount, AICallsTotal, BadgesAwarded)
}
