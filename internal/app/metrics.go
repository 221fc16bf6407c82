package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"github.com/bedrock-cadence/transport-portal/internal/http/middleware"
	"github.com/bedrock-cadence/transport-portal/internal/metrics"
)

type metricsOut struct {
	dig.Out

	RateLimitExceeded prometheus.Counter     `name:"rate_limit_exceeded_total"`
	NotifyRetries     prometheus.Counter     `name:"notify_retries_total"`
	NotifyFailures    prometheus.Counter     `name:"notify_failures_total"`
	AutoBids          prometheus.Counter     `name:"auto_bids_placed_total"`
	SweepOutcomes     *prometheus.CounterVec `name:"award_sweep_trips_total"`
	IntakeEvents      *prometheus.CounterVec `name:"intake_events_total"`
	HTTP              *middleware.HTTPMetrics
}

func provideMetrics(reg prometheus.Registerer) (metricsOut, error) {
	var (
		out metricsOut
		err error
	)
	if out.RateLimitExceeded, err = metrics.Register(reg, metrics.NewRateLimitExceededTotal()); err != nil {
		return out, err
	}
	if out.NotifyRetries, err = metrics.Register(reg, metrics.NewNotifyRetriesTotal()); err != nil {
		return out, err
	}
	if out.NotifyFailures, err = metrics.Register(reg, metrics.NewNotifyFailuresTotal()); err != nil {
		return out, err
	}
	if out.AutoBids, err = metrics.Register(reg, metrics.NewAutoBidsTotal()); err != nil {
		return out, err
	}
	if out.SweepOutcomes, err = metrics.Register(reg, metrics.NewSweepOutcomesTotal()); err != nil {
		return out, err
	}
	if out.IntakeEvents, err = metrics.Register(reg, metrics.NewIntakeEventsTotal()); err != nil {
		return out, err
	}
	if out.HTTP, err = middleware.NewHTTPMetrics(reg); err != nil {
		return out, err
	}
	return out, nil
}
