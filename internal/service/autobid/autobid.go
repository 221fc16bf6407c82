// Package autobid places bids on behalf of a configured test carrier.
// Bids go through the same path as human bids.
package autobid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/clock"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
)

//go:generate mockgen -source=autobid.go -destination=autobidmock/bidder.go -package=autobidmock

// Bidder is the bid path shared with human carriers.
type Bidder interface {
	OpenForCarrier(ctx context.Context, carrierID int64) ([]domain.Trip, error)
	PlaceBid(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID, eta time.Time) (domain.Bid, error)
}

// Config identifies the automated carrier.
type Config struct {
	CarrierID int64
	UserID    int64
	ETAOffset time.Duration
}

// Result describes one run.
type Result struct {
	Placed   bool
	TripUUID uuid.UUID
	Bid      domain.Bid
}

// Runner places at most one bid per Run.
type Runner struct {
	bidder Bidder
	cfg    Config
	clock  clock.Clock
	placed prometheus.Counter
	logger logx.Logger
}

// NewRunner - creates a new automated bidder.
func NewRunner(b Bidder, cfg Config, clk clock.Clock, placed prometheus.Counter, logger logx.Logger) (*Runner, error) {
	if cfg.CarrierID <= 0 || cfg.UserID <= 0 {
		return nil, fmt.Errorf("autobid carrier and user are required: %w", apperr.ErrInvalid)
	}
	if cfg.ETAOffset <= 0 {
		cfg.ETAOffset = 30 * time.Minute
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Runner{bidder: b, cfg: cfg, clock: clk, placed: placed, logger: logger}, nil
}

func (r *Runner) actor() domain.AuthContext {
	return domain.AuthContext{
		UserID:     r.cfg.UserID,
		Role:       domain.RoleMember,
		EntityType: domain.EntityCarrier,
		EntityID:   r.cfg.CarrierID,
	}
}

// ETA picks the bid eta for a trip: the requested pickup or appointment time when it is
// still ahead, otherwise now plus the offset.
func ETA(t *domain.Trip, now time.Time, offset time.Duration) time.Time {
	fallback := now.Add(offset)
	if at, ok := t.Timing.RequestedPickup(); ok && at.After(now) {
		return at
	}
	if at, ok := t.Timing.Appointment(); ok && at.After(now) {
		return at
	}
	return fallback
}

// Run bids on the first open trip the carrier is eligible for. Trips lost to a race
// (closed, already bid, no longer eligible) are skipped.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	open, err := r.bidder.OpenForCarrier(ctx, r.cfg.CarrierID)
	if err != nil {
		return Result{}, fmt.Errorf("autobid: list open trips: %w", err)
	}

	for i := range open {
		t := &open[i]
		eta := ETA(t, r.clock.Now(), r.cfg.ETAOffset)

		bid, err := r.bidder.PlaceBid(ctx, r.actor(), t.UUID, eta)
		switch {
		case err == nil:
			if r.placed != nil {
				r.placed.Inc()
			}
			r.logger.Info("auto bid placed",
				logx.String("event", string(domain.EventBidPlaced)),
				logx.Stringer("trip", t.UUID),
				logx.Int64("carrier_id", r.cfg.CarrierID),
				logx.Time("eta", bid.ETA),
			)
			return Result{Placed: true, TripUUID: t.UUID, Bid: bid}, nil
		case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrForbidden), errors.Is(err, apperr.ErrNotFound):
			r.logger.Debug("auto bid skipped", logx.Stringer("trip", t.UUID), logx.Err(err))
			continue
		default:
			return Result{}, fmt.Errorf("autobid: place bid: %w", err)
		}
	}

	r.logger.Info("auto bid: no open trips", logx.Int("examined", len(open)))
	return Result{}, nil
}
