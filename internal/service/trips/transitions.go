package trips

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/notify"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
	"github.com/bedrock-cadence/transport-portal/internal/service/lifecycle"
)

var cancellable = []domain.TripStatus{domain.TripBidding, domain.TripAwarded}

// Cancel - the owning facility or an admin cancels a trip in bidding or awarded.
func (s *Service) Cancel(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID, reason string) (domain.Trip, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	reason = strings.TrimSpace(reason)
	var (
		out   domain.Trip
		notes []notify.Notification
	)
	err := s.runner.WithTx(ctx, func(tx triptx.Repository) error {
		trip, err := lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !actor.IsFacility(trip.FacilityID) {
			return apperr.ErrForbidden
		}
		if err := lifecycle.EnsureOpen(trip); err != nil {
			return err
		}
		if trip.Status == domain.TripAwarded && trip.Completion.State() != domain.AwaitingCarrierCompletion {
			return fmt.Errorf("carrier already reported completion: %w", apperr.ErrConflict)
		}

		if reason == "" {
			reason = "cancelled by " + string(actor.EntityType)
		}
		if err := lifecycle.Cancel(ctx, tx, trip, cancellable, lifecycle.Actor(actor), reason, s.clock.Now()); err != nil {
			return err
		}
		notes, err = lifecycle.NotifyCarrier(ctx, tx, trip, notify.EventTripCancelled, "The trip was cancelled")
		if err != nil {
			return err
		}
		if actor.IsAdmin() {
			more, err := lifecycle.NotifyFacility(ctx, tx, trip, notify.EventTripCancelled, "An administrator cancelled the trip")
			if err != nil {
				return err
			}
			notes = append(notes, more...)
		}

		updated, err := tx.GetTrip(ctx, trip.ID)
		if err != nil {
			return err
		}
		out = *updated
		return nil
	})
	if err != nil {
		return domain.Trip{}, err
	}

	s.logger.Info("trip cancelled",
		logx.String("event", string(domain.EventTripCancelled)),
		logx.Stringer("trip", tripID),
		logx.String("actor", string(actor.EntityType)),
	)
	s.deliver(ctx, notes)
	return out, nil
}

// CarrierComplete - the awarded carrier reports the transport done.
func (s *Service) CarrierComplete(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID) (domain.Trip, error) {
	if !actor.IsCarrier() {
		return domain.Trip{}, apperr.ErrForbidden
	}
	return s.complete(ctx, tripID, domain.EventCarrierCompleted,
		func(t *domain.Trip) bool { return t.AwardedTo(actor.EntityID) },
		func(ctx context.Context, tx triptx.Repository, t *domain.Trip) (bool, []notify.Notification, error) {
			ok, err := tx.MarkCarrierCompleted(ctx, t.ID, s.clock.Now())
			if err != nil || !ok {
				return ok, nil, err
			}
			notes, err := lifecycle.NotifyFacility(ctx, tx, t, notify.EventCarrierCompleted, "The carrier reported the trip complete")
			return true, notes, err
		}, actor)
}

// FacilityConfirm - the owning facility confirms a completion reported by the carrier.
func (s *Service) FacilityConfirm(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID) (domain.Trip, error) {
	return s.complete(ctx, tripID, domain.EventFacilityConfirmed,
		func(t *domain.Trip) bool { return actor.IsFacility(t.FacilityID) },
		func(ctx context.Context, tx triptx.Repository, t *domain.Trip) (bool, []notify.Notification, error) {
			ok, err := tx.MarkFacilityCompleted(ctx, t.ID, s.clock.Now())
			if err != nil || !ok {
				return ok, nil, err
			}
			notes, err := lifecycle.NotifyCarrier(ctx, tx, t, notify.EventFacilityConfirmed, "The facility confirmed the trip complete")
			return true, notes, err
		}, actor)
}

type completionStep func(ctx context.Context, tx triptx.Repository, t *domain.Trip) (bool, []notify.Notification, error)

func (s *Service) complete(ctx context.Context, tripID uuid.UUID, event domain.AuditEvent, allowed func(*domain.Trip) bool, step completionStep, actor domain.AuthContext) (domain.Trip, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		out   domain.Trip
		notes []notify.Notification
	)
	err := s.runner.WithTx(ctx, func(tx triptx.Repository) error {
		trip, err := lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if !allowed(trip) {
			return apperr.ErrForbidden
		}
		if err := lifecycle.EnsureOpen(trip); err != nil {
			return err
		}

		ok, n, err := step(ctx, tx, trip)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s out of order: %w", event, apperr.ErrConflict)
		}
		notes = n

		if err := tx.AppendAudit(ctx, &domain.AuditEntry{
			TripID: trip.ID, ActorUserID: lifecycle.Actor(actor), Event: event, CreatedAt: s.clock.Now(),
		}); err != nil {
			return err
		}
		updated, err := tx.GetTrip(ctx, trip.ID)
		if err != nil {
			return err
		}
		out = *updated
		return nil
	})
	if err != nil {
		return domain.Trip{}, err
	}

	s.logger.Info("trip completion",
		logx.String("event", string(event)),
		logx.Stringer("trip", tripID),
		logx.Stringer("state", out.Completion.State()),
	)
	s.deliver(ctx, notes)
	return out, nil
}
