// Package award closes expired bidding windows: it extends, cancels or awards each trip.
package award

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/clock"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/notify"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
	"github.com/bedrock-cadence/transport-portal/internal/service/bidding"
	"github.com/bedrock-cadence/transport-portal/internal/service/lifecycle"
)

// Outcome is what the sweep did with one trip.
type Outcome string

// List of outcomes
const (
	OutcomeAwarded   Outcome = "awarded"
	OutcomeExtended  Outcome = "extended"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// errStale aborts a trip whose state changed under us; the tx rolls back and the trip is skipped.
var errStale = errors.New("trip changed concurrently")

// errBilling marks a failure to charge the award. It is never a concurrency skip.
var errBilling = errors.New("bill award")

// SweepReport summarises one sweep.
type SweepReport struct {
	Examined  int
	Awarded   int
	Extended  int
	Cancelled int
	Skipped   int
	Failed    int
}

// Config holds the engine settings.
type Config struct {
	AwardFee    decimal.Decimal
	TripTimeout time.Duration
}

// Engine runs award sweeps.
type Engine struct {
	runner   triptx.Runner
	clock    clock.Clock
	notifier notifier
	outcomes outcomeCounter
	logger   logx.Logger
	cfg      Config
}

// NewEngine creates a new Engine.
func NewEngine(r triptx.Runner, c clock.Clock, n notifier, outcomes outcomeCounter, logger logx.Logger, cfg Config) *Engine {
	if cfg.TripTimeout <= 0 {
		cfg.TripTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Engine{runner: r, clock: c, notifier: n, outcomes: outcomes, logger: logger, cfg: cfg}
}

// Sweep processes every bidding trip whose window closed at or before now. A failure on one
// trip is logged and counted and the sweep moves on. Only failing to list the trips is fatal.
func (e *Engine) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := e.clock.Now()

	var ids []int64
	err := e.runner.WithTx(ctx, func(tx triptx.Repository) error {
		var err error
		ids, err = tx.ListExpiredBidding(ctx, now)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("list expired trips: %w", err)
	}

	for _, id := range ids {
		report.Examined++
		outcome := e.processTrip(ctx, id, now)
		switch outcome {
		case OutcomeAwarded:
			report.Awarded++
		case OutcomeExtended:
			report.Extended++
		case OutcomeCancelled:
			report.Cancelled++
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeFailed:
			report.Failed++
		}
		if e.outcomes != nil {
			e.outcomes.WithLabelValues(string(outcome)).Inc()
		}
	}

	e.logger.Info("award sweep finished",
		logx.String("event", "award_sweep"),
		logx.Int("examined", report.Examined),
		logx.Int("awarded", report.Awarded),
		logx.Int("extended", report.Extended),
		logx.Int("cancelled", report.Cancelled),
		logx.Int("skipped", report.Skipped),
		logx.Int("failed", report.Failed),
	)
	return report, nil
}

func (e *Engine) processTrip(ctx context.Context, tripID int64, now time.Time) (outcome Outcome) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.TripTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("award sweep panic",
				logx.Int64("trip_id", tripID),
				logx.Any("panic", p),
			)
			outcome = OutcomeFailed
		}
	}()

	var d decision
	err := e.runner.WithTx(ctx, func(tx triptx.Repository) error {
		var err error
		d, err = e.decide(ctx, tx, tripID, now)
		return err
	})
	switch {
	case errors.Is(err, errBilling):
		e.logger.Error("award sweep billing failed",
			logx.Int64("trip_id", tripID),
			logx.Err(err),
		)
		return OutcomeFailed
	case errors.Is(err, errStale), errors.Is(err, apperr.ErrConflict):
		e.logger.Debug("trip changed during sweep", logx.Int64("trip_id", tripID))
		return OutcomeSkipped
	case err != nil:
		e.logger.Error("award sweep trip failed",
			logx.Int64("trip_id", tripID),
			logx.Err(err),
		)
		return OutcomeFailed
	}

	if d.outcome != OutcomeSkipped {
		e.logger.Info("trip decided",
			logx.String("event", string(d.event)),
			logx.Stringer("trip", d.tripUUID),
			logx.String("outcome", string(d.outcome)),
		)
	}
	if e.notifier != nil {
		e.notifier.Deliver(ctx, d.notes...)
	}
	return d.outcome
}

type decision struct {
	outcome  Outcome
	event    domain.AuditEvent
	tripUUID uuid.UUID
	notes    []notify.Notification
}

func (e *Engine) decide(ctx context.Context, tx triptx.Repository, tripID int64, now time.Time) (decision, error) {
	trip, err := tx.LockTrip(ctx, tripID)
	if err != nil {
		return decision{}, err
	}
	if trip == nil || !bidding.IsExpired(trip, now) {
		return decision{outcome: OutcomeSkipped}, nil
	}

	bids, err := tx.ListBids(ctx, trip.ID)
	if err != nil {
		return decision{}, err
	}
	if len(bids) == 0 {
		return e.extendOrCancel(ctx, tx, trip, now)
	}
	return e.award(ctx, tx, trip, bids, now)
}

func (e *Engine) extendOrCancel(ctx context.Context, tx triptx.Repository, trip *domain.Trip, now time.Time) (decision, error) {
	link := lifecycle.Link(trip)
	facilityUsers, err := tx.ActiveUserIDs(ctx, domain.EntityFacility, trip.FacilityID)
	if err != nil {
		return decision{}, err
	}

	extended, err := tx.HasAuditEvent(ctx, trip.ID, domain.EventBiddingExtended)
	if err != nil {
		return decision{}, err
	}

	if !extended {
		deadline := bidding.NextExtensionDeadline(trip.BiddingClosesAt, now)
		marked, err := tx.AppendAuditOnce(ctx, &domain.AuditEntry{
			TripID:    trip.ID,
			Event:     domain.EventBiddingExtended,
			Detail:    "no bids; window extended to " + deadline.Format(time.RFC3339),
			CreatedAt: now,
		})
		if err != nil {
			return decision{}, err
		}
		if !marked {
			return decision{}, errStale
		}
		ok, err := tx.ExtendBidding(ctx, trip.ID, trip.BiddingClosesAt, deadline)
		if err != nil {
			return decision{}, err
		}
		if !ok {
			return decision{}, errStale
		}
		return decision{
			outcome:  OutcomeExtended,
			event:    domain.EventBiddingExtended,
			tripUUID: trip.UUID,
			notes: notify.ToUsers(facilityUsers, notify.EventBiddingExtended,
				"No bids yet; bidding extended by 20 minutes", link),
		}, nil
	}

	if err := lifecycle.Cancel(ctx, tx, trip, []domain.TripStatus{domain.TripBidding}, nil, "no bids after extension", now); err != nil {
		return decision{}, err
	}
	return decision{
		outcome:  OutcomeCancelled,
		event:    domain.EventTripCancelled,
		tripUUID: trip.UUID,
		notes: notify.ToUsers(facilityUsers, notify.EventTripCancelled,
			"No carrier bid on the trip; it has been cancelled", link),
	}, nil
}

func (e *Engine) award(ctx context.Context, tx triptx.Repository, trip *domain.Trip, bids []domain.Bid, now time.Time) (decision, error) {
	pref, err := tx.AwardingPreference(ctx, trip.FacilityID)
	if err != nil {
		return decision{}, err
	}
	winner, _ := SelectWinner(bids, trip.Timing, pref)

	ok, err := tx.AwardTrip(ctx, trip.ID, winner.CarrierID, winner.ETA, now)
	if err != nil {
		return decision{}, err
	}
	if !ok {
		return decision{}, errStale
	}

	if err := tx.InsertBillingLineItem(ctx, &domain.BillingLineItem{
		TripID:      trip.ID,
		BidID:       winner.ID,
		FacilityID:  trip.FacilityID,
		CarrierID:   winner.CarrierID,
		Amount:      e.cfg.AwardFee,
		Description: "trip award " + trip.UUID.String(),
		CreatedAt:   now,
	}); err != nil {
		return decision{}, fmt.Errorf("%w: bid %d: %w", errBilling, winner.ID, err)
	}

	if err := tx.AppendAudit(ctx, &domain.AuditEntry{
		TripID:    trip.ID,
		Event:     domain.EventTripAwarded,
		Detail:    fmt.Sprintf("carrier %d, bid %d, eta %s, preference %s", winner.CarrierID, winner.ID, winner.ETA.Format(time.RFC3339), pref),
		CreatedAt: now,
	}); err != nil {
		return decision{}, err
	}

	facilityNotes, err := lifecycle.NotifyFacility(ctx, tx, trip, notify.EventTripAwarded, "Your trip has been awarded")
	if err != nil {
		return decision{}, err
	}
	notes := []notify.Notification{{
		UserID:  winner.UserID,
		Event:   notify.EventTripAwarded,
		Message: "Your bid won the trip",
		Link:    lifecycle.Link(trip),
	}}
	notes = append(notes, facilityNotes...)

	return decision{outcome: OutcomeAwarded, event: domain.EventTripAwarded, tripUUID: trip.UUID, notes: notes}, nil
}
