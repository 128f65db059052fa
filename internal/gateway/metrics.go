package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GatewayRequestDuration - латентность запросов к внешним коллабораторам
var GatewayRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "riskengine",
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Outbound collaborator request latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{"operation"}, // gate, cancel_all, close_all, snapshot
)
