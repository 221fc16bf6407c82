// Package intake turns facility trip events into trip operations.
package intake

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
)

// List of results counted per event
const (
	ResultCreated   = "created"
	ResultCancelled = "cancelled"
	ResultDuplicate = "duplicate"
	ResultIgnored   = "ignored"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

type resultCounter interface {
	WithLabelValues(lvs ...string) prometheus.Counter
}

// Processor processes facility trip events
type Processor struct {
	trips   TripPort
	results resultCounter
	logger  logx.Logger
	factory *actionFactory
}

// NewProcessor creates a new intake Processor
func NewProcessor(t TripPort, results resultCounter, logger logx.Logger) *Processor {
	if logger == nil {
		logger = logx.Nop()
	}
	p := &Processor{trips: t, results: results, logger: logger}
	p.factory = newActionFactory(p.onCreated, p.onCancelled)
	return p
}

// Handle processes a single Event. Redelivered and stale events are not errors.
// Validation and authorization failures are returned so the transport can drop the message.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	fn, ok := p.factory.get(e.Type)
	if !ok {
		p.count(ResultIgnored)
		return nil
	}
	result, err := fn(ctx, e)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrInvalid), errors.Is(err, apperr.ErrForbidden):
		result = ResultRejected
	default:
		result = ResultFailed
	}
	p.count(result)
	return err
}

func (p *Processor) count(result string) {
	if p.results != nil {
		p.results.WithLabelValues(result).Inc()
	}
}

func (p *Processor) onCreated(ctx context.Context, e Event) (string, error) {
	in := e.Trip
	in.UUID = e.TripUUID
	in.FacilityID = e.FacilityID

	_, err := p.trips.CreateTrip(ctx, in)
	if errors.Is(err, apperr.ErrConflict) {
		p.logger.Info("intake duplicate trip", logx.Stringer("trip", e.TripUUID))
		return ResultDuplicate, nil
	}
	if err != nil {
		return "", err
	}
	return ResultCreated, nil
}

func (p *Processor) onCancelled(ctx context.Context, e Event) (string, error) {
	actor := domain.AuthContext{
		UserID:     e.UserID,
		Role:       domain.RoleMember,
		EntityType: domain.EntityFacility,
		EntityID:   e.FacilityID,
	}
	reason := e.Reason
	if reason == "" {
		reason = "withdrawn by facility system"
	}

	_, err := p.trips.Cancel(ctx, actor, e.TripUUID, reason)
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrConflict) {
		p.logger.Info("intake cancel skipped", logx.Stringer("trip", e.TripUUID), logx.Err(err))
		return ResultIgnored, nil
	}
	if err != nil {
		return "", err
	}
	return ResultCancelled, nil
}
