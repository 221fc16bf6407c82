package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewNotifyRetriesTotal returns a Prometheus counter for the number of notification delivery retries
func NewNotifyRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notify_retries_total",
		Help: "Total number of retry attempts performed by the notification dispatcher",
	})
}

// NewNotifyFailuresTotal returns a Prometheus counter for notifications that were dropped after all attempts
func NewNotifyFailuresTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notify_failures_total",
		Help: "Total number of notifications that could not be delivered",
	})
}

// NewSweepOutcomesTotal returns a Prometheus counter of award sweep decisions labelled by outcome
func NewSweepOutcomesTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "award_sweep_trips_total",
		Help: "Trips processed by the award sweep, by outcome",
	}, []string{"outcome"})
}

// NewAutoBidsTotal returns a Prometheus counter of bids placed by the automated bidder
func NewAutoBidsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auto_bids_placed_total",
		Help: "Total number of bids placed by the automated bidder",
	})
}

// NewIntakeEventsTotal returns a Prometheus counter of intake events labelled by result
func NewIntakeEventsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_events_total",
		Help: "Trip intake events consumed from Kafka, by result",
	}, []string{"result"})
}

// Register registers c, returning the already registered collector of the same type instead of failing.
func Register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
