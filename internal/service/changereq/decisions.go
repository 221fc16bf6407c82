package changereq

import (
	"context"
	"fmt"
	"time"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/notify"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
	"github.com/bedrock-cadence/transport-portal/internal/service/lifecycle"
)

// Result is the state after a decision.
type Result struct {
	Request domain.ChangeRequest
	Trip    domain.Trip
}

// loadRequest locks the request and its trip and checks the request kind.
func loadRequest(ctx context.Context, tx triptx.Repository, id int64, kind domain.ChangeKind) (*domain.ChangeRequest, *domain.Trip, error) {
	cr, err := tx.GetChangeRequestForUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if cr == nil {
		return nil, nil, apperr.ErrNotFound
	}
	if cr.Kind != kind {
		return nil, nil, fmt.Errorf("request %d is %s: %w", id, cr.Kind, apperr.ErrInvalid)
	}
	trip, err := tx.LockTrip(ctx, cr.TripID)
	if err != nil {
		return nil, nil, err
	}
	if trip == nil {
		return nil, nil, apperr.ErrNotFound
	}
	return cr, trip, nil
}

func resolve(ctx context.Context, tx triptx.Repository, cr *domain.ChangeRequest, status domain.ChangeStatus, actor domain.AuthContext, now time.Time) error {
	ok, err := tx.ResolveChangeRequest(ctx, cr.ID, status, actor.UserID, now)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("request already decided: %w", apperr.ErrConflict)
	}
	cr.Status = status
	cr.ResolvedByUserID = lifecycle.Actor(actor)
	cr.ResolvedAt = &now

	event := domain.EventChangeAccepted
	if status == domain.ChangeRejected {
		event = domain.EventChangeRejected
	}
	return tx.AppendAudit(ctx, &domain.AuditEntry{
		TripID: cr.TripID, ActorUserID: lifecycle.Actor(actor), Event: event,
		Detail: fmt.Sprintf("%s #%d", cr.Kind, cr.ID), CreatedAt: now,
	})
}

func pending(cr *domain.ChangeRequest) error {
	if cr.Status != domain.ChangePending {
		return fmt.Errorf("request already decided: %w", apperr.ErrConflict)
	}
	return nil
}

// DecideETAChange - the owning facility accepts or rejects a carrier's ETA change.
// A rejection leaves the trip awarded until ResolveRejectedETAChange picks a follow-up.
func (a *Arbiter) DecideETAChange(ctx context.Context, actor domain.AuthContext, requestID int64, accept bool) (Result, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var (
		res   Result
		notes []notify.Notification
	)
	err := a.runner.WithTx(ctx, func(tx triptx.Repository) error {
		cr, trip, err := loadRequest(ctx, tx, requestID, domain.ChangeETA)
		if err != nil {
			return err
		}
		if !actor.IsFacility(trip.FacilityID) {
			return apperr.ErrForbidden
		}
		if err := pending(cr); err != nil {
			return err
		}
		if err := lifecycle.EnsureAwardedInProgress(trip); err != nil {
			return err
		}

		now := a.clock.Now()
		if !accept {
			if err := resolve(ctx, tx, cr, domain.ChangeRejected, actor, now); err != nil {
				return err
			}
			notes, err = lifecycle.NotifyCarrier(ctx, tx, trip, notify.EventChangeRejected, "The facility rejected your ETA change")
			res = Result{Request: *cr, Trip: *trip}
			return err
		}

		eta, err := time.Parse(time.RFC3339, cr.Diff[domain.FieldAwardedETA].New)
		if err != nil {
			return fmt.Errorf("request %d has no eta: %w", cr.ID, err)
		}
		ok, err := tx.UpdateAwardedETA(ctx, trip.ID, eta, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("trip is not awarded: %w", apperr.ErrConflict)
		}
		if err := resolve(ctx, tx, cr, domain.ChangeAccepted, actor, now); err != nil {
			return err
		}
		notes, err = lifecycle.NotifyCarrier(ctx, tx, trip, notify.EventChangeAccepted, "The facility accepted your ETA change")
		if err != nil {
			return err
		}
		trip.AwardedETA = &eta
		res = Result{Request: *cr, Trip: *trip}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	a.logDecision(res, accept)
	a.deliver(ctx, notes)
	return res, nil
}

// ResolveRejectedETAChange - after rejecting an ETA change, the facility either rebroadcasts
// the trip or cancels it. The choice can be made once per request.
func (a *Arbiter) ResolveRejectedETAChange(ctx context.Context, actor domain.AuthContext, requestID int64, followUp domain.FollowUp) (Result, error) {
	if !followUp.Valid() {
		return Result{}, fmt.Errorf("follow-up must be rebroadcast or cancel: %w", apperr.ErrInvalid)
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var (
		res   Result
		notes []notify.Notification
	)
	err := a.runner.WithTx(ctx, func(tx triptx.Repository) error {
		cr, trip, err := loadRequest(ctx, tx, requestID, domain.ChangeETA)
		if err != nil {
			return err
		}
		if !actor.IsFacility(trip.FacilityID) {
			return apperr.ErrForbidden
		}
		if cr.Status != domain.ChangeRejected || cr.FollowUp != nil || cr.ResolvedByUserID == nil {
			return fmt.Errorf("no follow-up pending: %w", apperr.ErrConflict)
		}
		if err := lifecycle.EnsureAwardedInProgress(trip); err != nil {
			return err
		}

		ok, err := tx.SetFollowUp(ctx, cr.ID, followUp)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("follow-up already chosen: %w", apperr.ErrConflict)
		}
		cr.FollowUp = &followUp

		// уведомляем перевозчика до того как снимем его с рейса
		now := a.clock.Now()
		switch followUp {
		case domain.FollowUpRebroadcast:
			notes, err = lifecycle.NotifyCarrier(ctx, tx, trip, notify.EventTripRebroadcast, "The trip was returned to bidding")
			if err != nil {
				return err
			}
			reason := fmt.Sprintf("eta_change #%d rejected", cr.ID)
			if err := lifecycle.Rebroadcast(ctx, tx, trip, lifecycle.Actor(actor), reason, now); err != nil {
				return err
			}
		case domain.FollowUpCancel:
			notes, err = lifecycle.NotifyCarrier(ctx, tx, trip, notify.EventTripCancelled, "The facility cancelled the trip")
			if err != nil {
				return err
			}
			reason := fmt.Sprintf("eta_change #%d rejected", cr.ID)
			if err := lifecycle.Cancel(ctx, tx, trip, []domain.TripStatus{domain.TripAwarded}, lifecycle.Actor(actor), reason, now); err != nil {
				return err
			}
		}

		updated, err := tx.GetTrip(ctx, trip.ID)
		if err != nil {
			return err
		}
		res = Result{Request: *cr, Trip: *updated}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	a.logger.Info("eta change follow-up",
		logx.String("event", string(followUp)),
		logx.Stringer("trip", res.Trip.UUID),
		logx.Int64("request_id", res.Request.ID),
		logx.String("status", string(res.Trip.Status)),
	)
	a.deliver(ctx, notes)
	return res, nil
}

// DecideDetailsChange - the awarded carrier accepts or rejects a facility's details change.
// A rejection returns the trip to bidding immediately.
func (a *Arbiter) DecideDetailsChange(ctx context.Context, actor domain.AuthContext, requestID int64, accept bool) (Result, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var (
		res   Result
		notes []notify.Notification
	)
	err := a.runner.WithTx(ctx, func(tx triptx.Repository) error {
		cr, trip, err := loadRequest(ctx, tx, requestID, domain.ChangeDetails)
		if err != nil {
			return err
		}
		if err := lifecycle.EnsureOpen(trip); err != nil {
			return err
		}
		if !actor.IsCarrier() || !trip.AwardedTo(actor.EntityID) {
			return apperr.ErrForbidden
		}
		if err := pending(cr); err != nil {
			return err
		}
		if err := lifecycle.EnsureAwardedInProgress(trip); err != nil {
			return err
		}

		now := a.clock.Now()
		if accept {
			if err := applyDetails(trip, cr.Diff); err != nil {
				return err
			}
			if err := tx.UpdateTripDetails(ctx, trip, now); err != nil {
				return err
			}
			if err := resolve(ctx, tx, cr, domain.ChangeAccepted, actor, now); err != nil {
				return err
			}
			notes, err = lifecycle.NotifyFacility(ctx, tx, trip, notify.EventChangeAccepted, "The carrier accepted your changes")
			if err != nil {
				return err
			}
		} else {
			if err := resolve(ctx, tx, cr, domain.ChangeRejected, actor, now); err != nil {
				return err
			}
			reason := fmt.Sprintf("details_change #%d rejected", cr.ID)
			if err := lifecycle.Rebroadcast(ctx, tx, trip, lifecycle.Actor(actor), reason, now); err != nil {
				return err
			}
			notes, err = lifecycle.NotifyFacility(ctx, tx, trip, notify.EventChangeRejected,
				"The carrier rejected your changes; the trip was returned to bidding")
			if err != nil {
				return err
			}
		}

		updated, err := tx.GetTrip(ctx, trip.ID)
		if err != nil {
			return err
		}
		res = Result{Request: *cr, Trip: *updated}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	a.logDecision(res, accept)
	a.deliver(ctx, notes)
	return res, nil
}

func (a *Arbiter) logDecision(res Result, accept bool) {
	a.logger.Info("change decided",
		logx.String("event", string(res.Request.Status)),
		logx.String("kind", string(res.Request.Kind)),
		logx.Stringer("trip", res.Trip.UUID),
		logx.Int64("request_id", res.Request.ID),
		logx.Bool("accepted", accept),
	)
}
