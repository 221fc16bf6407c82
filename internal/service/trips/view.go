package trips

import (
	"context"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
	"github.com/bedrock-cadence/transport-portal/internal/service/disclosure"
)

// View returns the trip as the viewer is allowed to see it.
func (s *Service) View(ctx context.Context, viewer domain.AuthContext, tripID uuid.UUID) (disclosure.TripView, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var trip *domain.Trip
	err := s.runner.WithTx(ctx, func(tx triptx.Repository) error {
		t, err := tx.GetTripByUUID(ctx, tripID)
		if err != nil {
			return err
		}
		if t == nil {
			return apperr.ErrNotFound
		}
		trip = t
		return nil
	})
	if err != nil {
		return disclosure.TripView{}, err
	}
	return disclosure.Project(trip, viewer, s.cipher)
}

// Board lists open trips the calling carrier may bid on.
func (s *Service) Board(ctx context.Context, viewer domain.AuthContext) ([]disclosure.TripView, error) {
	if !viewer.IsCarrier() {
		return nil, apperr.ErrForbidden
	}
	open, err := s.OpenForCarrier(ctx, viewer.EntityID)
	if err != nil {
		return nil, err
	}

	out := make([]disclosure.TripView, 0, len(open))
	for i := range open {
		v, err := disclosure.Project(&open[i], viewer, s.cipher)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// History returns the audit trail of a trip, oldest first. Entries name carriers that bid,
// so only the owning facility and admins may read it.
func (s *Service) History(ctx context.Context, viewer domain.AuthContext, tripID uuid.UUID) ([]domain.AuditEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var entries []domain.AuditEntry
	err := s.runner.WithTx(ctx, func(tx triptx.Repository) error {
		t, err := tx.GetTripByUUID(ctx, tripID)
		if err != nil {
			return err
		}
		if t == nil {
			return apperr.ErrNotFound
		}
		switch disclosure.Classify(t, viewer) {
		case disclosure.ViewerOwningFacility, disclosure.ViewerAdmin:
		default:
			return apperr.ErrForbidden
		}
		entries, err = tx.ListAudit(ctx, t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
