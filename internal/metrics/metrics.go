// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bloom"

// Result label values
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// CoupleRequestOps counts couple request operations by op and result
	CoupleRequestOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "couple_request_operations_total",
		Help:      "Couple request operations by operation and result.",
	}, []string{"op", "result"})

	// AnswerOps counts answer submissions and reads
	AnswerOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answer_operations_total",
		Help:      "Answer operations by operation and result.",
	}, []string{"op", "result"})

	// ExpiredRequests counts pending couple requests moved to expired
	ExpiredRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "couple_requests_expired_total",
		Help:      "Pending couple requests expired by the sweeper.",
	})

	// EdgeCallDuration observes finalize and journal-summarize latency
	EdgeCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "edge_call_duration_seconds",
		Help:      "Latency of edge service calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "result"})

	// WSConnections is the number of open WebSocket connections
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_connections",
		Help:      "Open WebSocket connections.",
	})

	// PushSent counts push notifications by result
	PushSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "push_notifications_total",
		Help:      "Push notifications sent by result.",
	}, []string{"result"})
)

// Result maps an error to a result label
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
