package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for authentication operations.
type Metrics struct {
	authOperations *prometheus.CounterVec
}

// NewMetrics registers the service collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		authOperations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Total number of authentication operations by outcome",
		}, []string{"operation", "outcome"}),
	}
}

func (m *Metrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	m.authOperations.WithLabelValues(operation, outcome(err)).Inc()
}
