package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ordersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "purchase_orders",
			Subsystem: "orchestrator",
			Name:      "orders_created_total",
			Help:      "Total number of successfully committed orders",
		},
	)

	ordersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "purchase_orders",
			Subsystem: "orchestrator",
			Name:      "orders_rejected_total",
			Help:      "Total number of rejected creation requests by reason",
		},
		[]string{"reason"},
	)

	compensationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "purchase_orders",
			Subsystem: "orchestrator",
			Name:      "compensation_failures_total",
			Help:      "Orders committed whose inventory adjustment failed",
		},
	)
)

var (
	requestsConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "purchase_orders",
			Subsystem: "kafka_consumer",
			Name:      "requests_consumed_total",
			Help:      "Total number of creation requests consumed from Kafka",
		},
	)

	requestsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "purchase_orders",
			Subsystem: "kafka_consumer",
			Name:      "requests_failed_total",
			Help:      "Total number of consumed requests that failed handling",
		},
	)

	requestsDLQ = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "purchase_orders",
			Subsystem: "kafka_consumer",
			Name:      "requests_dlq_total",
			Help:      "Total number of requests written to the DLQ",
		},
	)

	commitErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "purchase_orders",
			Subsystem: "kafka_consumer",
			Name:      "commit_errors_total",
			Help:      "Total number of Kafka commit errors",
		},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(
		ordersCreated,
		ordersRejected,
		compensationFailures,

		requestsConsumed,
		requestsFailed,
		requestsDLQ,
		commitErrors,
	)
}
