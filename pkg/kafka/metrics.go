package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the producer side collectors.
type Metrics struct {
	published    *prometheus.CounterVec
	errors       *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	breakerState prometheus.Gauge
}

// NewMetrics registers the producer collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_producer_messages_published_total",
			Help: "Total number of Kafka messages published",
		}, []string{"topic"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_producer_publish_errors_total",
			Help: "Total number of Kafka publish errors, including calls rejected by the circuit breaker",
		}, []string{"topic"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kafka_producer_publish_duration_seconds",
			Help:    "Duration of Kafka publish operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		breakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kafka_producer_circuit_breaker_state",
			Help: "State of the producer circuit breaker (0=closed, 1=half-open, 2=open)",
		}),
	}
}
