package changereq

import (
	"context"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
	"github.com/bedrock-cadence/transport-portal/internal/service/disclosure"
)

// ListForTrip - change requests of a trip, newest first, as the viewer may see them.
// Only the owning facility, the awarded carrier and admins can read them.
func (a *Arbiter) ListForTrip(ctx context.Context, viewer domain.AuthContext, tripID uuid.UUID) ([]disclosure.ChangeRequestView, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var (
		trip     *domain.Trip
		requests []domain.ChangeRequest
	)
	err := a.runner.WithTx(ctx, func(tx triptx.Repository) error {
		var err error
		trip, err = tx.GetTripByUUID(ctx, tripID)
		if err != nil {
			return err
		}
		if trip == nil {
			return apperr.ErrNotFound
		}
		if !canReadRequests(trip, viewer) {
			return apperr.ErrForbidden
		}
		requests, err = tx.ListChangeRequests(ctx, trip.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	// расшифровка вне транзакции
	out := make([]disclosure.ChangeRequestView, 0, len(requests))
	for _, cr := range requests {
		v, err := disclosure.ProjectChange(trip, cr, viewer, a.cipher)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func canReadRequests(t *domain.Trip, viewer domain.AuthContext) bool {
	switch disclosure.Classify(t, viewer) {
	case disclosure.ViewerOwningFacility, disclosure.ViewerAwardedCarrier, disclosure.ViewerAdmin:
		return true
	}
	return false
}
