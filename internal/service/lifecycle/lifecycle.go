// Package lifecycle applies the multi-record trip transitions shared by several services.
// Callers run these inside their own transaction and have already checked authorization.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/notify"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
	"github.com/bedrock-cadence/transport-portal/internal/service/bidding"
)

// Link is the portal path of a trip used in notifications.
func Link(t *domain.Trip) string {
	return "/trips/" + t.UUID.String()
}

// EnsureOpen fails with ErrTripClosed for completed or cancelled trips.
func EnsureOpen(t *domain.Trip) error {
	if t.Status.Terminal() {
		return apperr.ErrTripClosed
	}
	return nil
}

// EnsureAwardedInProgress requires an awarded trip whose carrier has not reported completion.
func EnsureAwardedInProgress(t *domain.Trip) error {
	if err := EnsureOpen(t); err != nil {
		return err
	}
	if t.Status != domain.TripAwarded || t.Completion.State() != domain.AwaitingCarrierCompletion {
		return fmt.Errorf("trip is not awarded: %w", apperr.ErrConflict)
	}
	return nil
}

// Rebroadcast returns an awarded trip to bidding with a fresh window. Bids from the previous
// round are cleared; the previous carrier is not locked out.
func Rebroadcast(ctx context.Context, tx triptx.Repository, t *domain.Trip, actor *int64, reason string, now time.Time) error {
	ok, err := tx.RebroadcastTrip(ctx, t.ID, bidding.RebroadcastDeadline(now), now)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("rebroadcast: %w", apperr.ErrConflict)
	}
	if err := tx.DeleteBidsForTrip(ctx, t.ID); err != nil {
		return err
	}
	if _, err := tx.RejectPendingChangeRequests(ctx, t.ID, now); err != nil {
		return err
	}
	return tx.AppendAudit(ctx, &domain.AuditEntry{
		TripID:      t.ID,
		ActorUserID: actor,
		Event:       domain.EventTripRebroadcast,
		Detail:      reason,
		CreatedAt:   now,
	})
}

// Cancel terminalizes a trip currently in one of the from statuses.
func Cancel(ctx context.Context, tx triptx.Repository, t *domain.Trip, from []domain.TripStatus, actor *int64, reason string, now time.Time) error {
	ok, err := tx.CancelTrip(ctx, t.ID, from, now)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrTripClosed
	}
	if _, err := tx.RejectPendingChangeRequests(ctx, t.ID, now); err != nil {
		return err
	}
	return tx.AppendAudit(ctx, &domain.AuditEntry{
		TripID:      t.ID,
		ActorUserID: actor,
		Event:       domain.EventTripCancelled,
		Detail:      reason,
		CreatedAt:   now,
	})
}

// Notify builds notifications for every active user of an entity.
func Notify(ctx context.Context, tx triptx.Repository, entity domain.EntityType, entityID int64, event notify.Event, message, link string) ([]notify.Notification, error) {
	users, err := tx.ActiveUserIDs(ctx, entity, entityID)
	if err != nil {
		return nil, err
	}
	return notify.ToUsers(users, event, message, link), nil
}

// NotifyCarrier notifies the users of the trip's assigned carrier, if any.
func NotifyCarrier(ctx context.Context, tx triptx.Repository, t *domain.Trip, event notify.Event, message string) ([]notify.Notification, error) {
	if t.CarrierID == nil {
		return nil, nil
	}
	return Notify(ctx, tx, domain.EntityCarrier, *t.CarrierID, event, message, Link(t))
}

// NotifyFacility notifies the users of the trip's facility.
func NotifyFacility(ctx context.Context, tx triptx.Repository, t *domain.Trip, event notify.Event, message string) ([]notify.Notification, error) {
	return Notify(ctx, tx, domain.EntityFacility, t.FacilityID, event, message, Link(t))
}

// Actor returns the user id of the caller for audit entries.
func Actor(a domain.AuthContext) *int64 {
	id := a.UserID
	return &id
}
