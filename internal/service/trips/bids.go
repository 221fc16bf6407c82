package trips

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
	"github.com/bedrock-cadence/transport-portal/internal/service/bidding"
	"github.com/bedrock-cadence/transport-portal/internal/service/lifecycle"
)

// ensureBiddable requires a trip in bidding whose window has not closed.
func ensureBiddable(t *domain.Trip, now time.Time) error {
	if err := lifecycle.EnsureOpen(t); err != nil {
		return err
	}
	if !bidding.IsOpen(t, now) {
		return apperr.ErrTripClosed
	}
	return nil
}

// PlaceBid - an eligible carrier offers an ETA on an open trip. A carrier bids at most once per trip.
func (s *Service) PlaceBid(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID, eta time.Time) (domain.Bid, error) {
	if eta.IsZero() {
		return domain.Bid{}, fmt.Errorf("eta is required: %w", apperr.ErrInvalid)
	}
	if !actor.IsCarrier() {
		return domain.Bid{}, apperr.ErrForbidden
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var bid domain.Bid
	err := s.runner.WithTx(ctx, func(tx triptx.Repository) error {
		trip, err := lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if err := ensureBiddable(trip, now); err != nil {
			return err
		}
		if eta.Before(now) {
			return fmt.Errorf("eta is in the past: %w", apperr.ErrInvalid)
		}
		if err := s.filter.Check(ctx, tx, trip, actor.EntityID); err != nil {
			return err
		}

		bid = domain.Bid{
			TripID:    trip.ID,
			CarrierID: actor.EntityID,
			UserID:    actor.UserID,
			ETA:       eta.UTC(),
			CreatedAt: now,
		}
		if err := tx.InsertBid(ctx, &bid); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, &domain.AuditEntry{
			TripID: trip.ID, ActorUserID: lifecycle.Actor(actor), Event: domain.EventBidPlaced,
			Detail: fmt.Sprintf("carrier %d", actor.EntityID), CreatedAt: now,
		})
	})
	if err != nil {
		return domain.Bid{}, err
	}

	s.logger.Info("bid placed",
		logx.String("event", string(domain.EventBidPlaced)),
		logx.Stringer("trip", tripID),
		logx.Int64("carrier_id", bid.CarrierID),
		logx.Time("eta", bid.ETA),
	)
	return bid, nil
}

// RetractBid - a carrier withdraws its bid while bidding is open. The carrier cannot bid on
// the trip again.
func (s *Service) RetractBid(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID) error {
	if !actor.IsCarrier() {
		return apperr.ErrForbidden
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.runner.WithTx(ctx, func(tx triptx.Repository) error {
		trip, err := lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if err := ensureBiddable(trip, now); err != nil {
			return err
		}

		deleted, err := tx.DeleteBid(ctx, trip.ID, actor.EntityID)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.ErrNotFound
		}
		if err := tx.InsertLockout(ctx, trip.ID, actor.EntityID, now); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, &domain.AuditEntry{
			TripID: trip.ID, ActorUserID: lifecycle.Actor(actor), Event: domain.EventBidRetracted,
			Detail: fmt.Sprintf("carrier %d", actor.EntityID), CreatedAt: now,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("bid retracted",
		logx.String("event", string(domain.EventBidRetracted)),
		logx.Stringer("trip", tripID),
		logx.Int64("carrier_id", actor.EntityID),
	)
	return nil
}

// OpenForCarrier lists trips still open for bidding on which the carrier may place a bid,
// ordered by closing time.
func (s *Service) OpenForCarrier(ctx context.Context, carrierID int64) ([]domain.Trip, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out []domain.Trip
	err := s.runner.WithTx(ctx, func(tx triptx.Repository) error {
		open, err := tx.ListOpenBidding(ctx, s.clock.Now())
		if err != nil {
			return err
		}
		for i := range open {
			snap, err := s.filter.Compute(ctx, tx, &open[i])
			if err != nil {
				return err
			}
			if snap.Contains(carrierID) {
				out = append(out, open[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
