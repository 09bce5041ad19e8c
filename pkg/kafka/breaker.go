package kafka

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig controls the circuit breaker in front of the broker.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval after which failure counts reset while closed.
	Interval time.Duration
	// Timeout the breaker stays open before probing again.
	Timeout time.Duration
	// FailureRatio that trips the breaker once MinRequests have been seen.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig trips after half of at least five publishes fail and
// lets a trial publish through after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func newBreaker(name string, cfg BreakerConfig, metrics *Metrics, logger *slog.Logger) *gobreaker.CircuitBreaker[struct{}] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < cfg.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("kafka circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.breakerState.Set(stateValue(to))
		},
	}
	metrics.breakerState.Set(stateValue(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[struct{}](settings)
}
