package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "purchase_orders",
		Subsystem: "client",
		Name:      "breaker_state",
		Help:      "Circuit breaker state per dependency (0 closed, 1 open, 2 half-open).",
	}, []string{"dependency"})

	dependencyCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "purchase_orders",
		Subsystem: "client",
		Name:      "dependency_calls_total",
		Help:      "Guarded dependency calls by classified outcome.",
	}, []string{"dependency", "outcome"})
)
