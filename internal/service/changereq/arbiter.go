// Package changereq arbitrates post-award ETA and details change requests.
package changereq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/clock"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/notify"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
	"github.com/bedrock-cadence/transport-portal/internal/service/lifecycle"
)

// Arbiter - service for change requests and their decisions.
type Arbiter struct {
	runner           triptx.Runner
	cipher           sealer
	notifier         notifier
	clock            clock.Clock
	operationTimeout time.Duration
	logger           logx.Logger
}

// NewArbiter - creates a new Arbiter.
func NewArbiter(r triptx.Runner, c sealer, n notifier, clk clock.Clock, timeout time.Duration, logger logx.Logger) *Arbiter {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Arbiter{runner: r, cipher: c, notifier: n, clock: clk, operationTimeout: timeout, logger: logger}
}

func (a *Arbiter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.operationTimeout)
}

func (a *Arbiter) deliver(ctx context.Context, notes []notify.Notification) {
	if a.notifier != nil {
		a.notifier.Deliver(ctx, notes...)
	}
}

func loadTrip(ctx context.Context, tx triptx.Repository, id uuid.UUID) (*domain.Trip, error) {
	trip, err := tx.GetTripByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, apperr.ErrNotFound
	}
	return tx.LockTrip(ctx, trip.ID)
}

// RequestETAChange - the awarded carrier proposes a new ETA.
func (a *Arbiter) RequestETAChange(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID, eta time.Time) (*domain.ChangeRequest, error) {
	if eta.IsZero() {
		return nil, fmt.Errorf("eta is required: %w", apperr.ErrInvalid)
	}
	if !actor.IsCarrier() {
		return nil, apperr.ErrForbidden
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var (
		cr    *domain.ChangeRequest
		notes []notify.Notification
	)
	err := a.runner.WithTx(ctx, func(tx triptx.Repository) error {
		trip, err := loadTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if err := lifecycle.EnsureOpen(trip); err != nil {
			return err
		}
		if !trip.AwardedTo(actor.EntityID) {
			return apperr.ErrForbidden
		}
		if err := lifecycle.EnsureAwardedInProgress(trip); err != nil {
			return err
		}

		now := a.clock.Now()
		var old string
		if trip.AwardedETA != nil {
			old = trip.AwardedETA.UTC().Format(time.RFC3339)
		}
		cr = &domain.ChangeRequest{
			TripID:            trip.ID,
			Kind:              domain.ChangeETA,
			RequestedByUserID: actor.UserID,
			Diff: map[domain.DetailField]domain.FieldChange{
				domain.FieldAwardedETA: {Old: old, New: eta.UTC().Format(time.RFC3339)},
			},
			Status:    domain.ChangePending,
			CreatedAt: now,
		}
		if err := tx.InsertChangeRequest(ctx, cr); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, &domain.AuditEntry{
			TripID: trip.ID, ActorUserID: lifecycle.Actor(actor), Event: domain.EventChangeRequested,
			Detail: fmt.Sprintf("eta_change #%d", cr.ID), CreatedAt: now,
		}); err != nil {
			return err
		}
		notes, err = lifecycle.NotifyFacility(ctx, tx, trip, notify.EventChangeRequested, "The carrier proposed a new ETA")
		return err
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("change requested",
		logx.String("event", string(domain.EventChangeRequested)),
		logx.String("kind", string(domain.ChangeETA)),
		logx.Stringer("trip", tripID),
		logx.Int64("request_id", cr.ID),
	)
	a.deliver(ctx, notes)
	return cr, nil
}

// RequestDetailsChange - the owning facility proposes edits to whitelisted trip fields.
// PHI values are encrypted before they are stored in the diff.
func (a *Arbiter) RequestDetailsChange(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID, changes map[domain.DetailField]string) (*domain.ChangeRequest, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("no changes: %w", apperr.ErrInvalid)
	}
	if actor.EntityType != domain.EntityFacility {
		return nil, apperr.ErrForbidden
	}

	proposed := make(map[domain.DetailField]string, len(changes))
	for field, value := range changes {
		if !field.DetailsChangeAllowed() {
			return nil, fmt.Errorf("field %q cannot be changed: %w", field, apperr.ErrInvalid)
		}
		value = strings.TrimSpace(value)
		switch {
		case field == domain.FieldAppointmentAt:
			at, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return nil, fmt.Errorf("appointment_at must be RFC3339: %w", apperr.ErrInvalid)
			}
			proposed[field] = at.UTC().Format(time.RFC3339)
		case field.PHI():
			if value == "" {
				return nil, fmt.Errorf("field %q is empty: %w", field, apperr.ErrInvalid)
			}
			sealed, err := a.cipher.Encrypt(value)
			if err != nil {
				return nil, fmt.Errorf("encrypt %s: %w", field, err)
			}
			proposed[field] = sealed.Encode()
		default:
			proposed[field] = value
		}
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var (
		cr    *domain.ChangeRequest
		notes []notify.Notification
	)
	err := a.runner.WithTx(ctx, func(tx triptx.Repository) error {
		trip, err := loadTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if !actor.IsFacility(trip.FacilityID) {
			return apperr.ErrForbidden
		}
		if err := lifecycle.EnsureAwardedInProgress(trip); err != nil {
			return err
		}
		if _, ok := proposed[domain.FieldAppointmentAt]; ok && trip.Timing.Mode() != domain.TimingAppointment {
			return fmt.Errorf("trip has no appointment: %w", apperr.ErrInvalid)
		}

		diff := make(map[domain.DetailField]domain.FieldChange, len(proposed))
		for field, value := range proposed {
			diff[field] = domain.FieldChange{Old: currentValue(trip, field), New: value}
		}

		now := a.clock.Now()
		cr = &domain.ChangeRequest{
			TripID:            trip.ID,
			Kind:              domain.ChangeDetails,
			RequestedByUserID: actor.UserID,
			Diff:              diff,
			Status:            domain.ChangePending,
			CreatedAt:         now,
		}
		if err := tx.InsertChangeRequest(ctx, cr); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, &domain.AuditEntry{
			TripID: trip.ID, ActorUserID: lifecycle.Actor(actor), Event: domain.EventChangeRequested,
			Detail: fmt.Sprintf("details_change #%d", cr.ID), CreatedAt: now,
		}); err != nil {
			return err
		}
		notes, err = lifecycle.NotifyCarrier(ctx, tx, trip, notify.EventChangeRequested, "The facility proposed changes to the trip details")
		return err
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("change requested",
		logx.String("event", string(domain.EventChangeRequested)),
		logx.String("kind", string(domain.ChangeDetails)),
		logx.Stringer("trip", tripID),
		logx.Int64("request_id", cr.ID),
		logx.Int("fields", len(cr.Diff)),
	)
	a.deliver(ctx, notes)
	return cr, nil
}

func currentValue(t *domain.Trip, field domain.DetailField) string {
	p := t.Details.Patient
	switch field {
	case domain.FieldPatientFirstName:
		return p.FirstName.Encode()
	case domain.FieldPatientLastName:
		return p.LastName.Encode()
	case domain.FieldPatientWeight:
		return p.Weight.Encode()
	case domain.FieldPatientHeight:
		return p.Height.Encode()
	case domain.FieldEquipment:
		return t.Details.Equipment
	case domain.FieldIsolationPrecautions:
		return t.Details.IsolationPrecautions
	case domain.FieldAppointmentAt:
		if at, ok := t.Timing.Appointment(); ok {
			return at.Format(time.RFC3339)
		}
	}
	return ""
}

// applyDetails writes accepted whitelisted values onto the trip. Anything else is ignored.
func applyDetails(t *domain.Trip, diff map[domain.DetailField]domain.FieldChange) error {
	for field, change := range diff {
		if !field.DetailsChangeAllowed() {
			continue
		}
		if field.PHI() {
			sealed, err := domain.DecodeCiphertext(change.New)
			if err != nil {
				return fmt.Errorf("decode %s: %w", field, err)
			}
			switch field {
			case domain.FieldPatientFirstName:
				t.Details.Patient.FirstName = sealed
			case domain.FieldPatientLastName:
				t.Details.Patient.LastName = sealed
			case domain.FieldPatientWeight:
				t.Details.Patient.Weight = sealed
			case domain.FieldPatientHeight:
				t.Details.Patient.Height = sealed
			}
			continue
		}
		switch field {
		case domain.FieldEquipment:
			t.Details.Equipment = change.New
		case domain.FieldIsolationPrecautions:
			t.Details.IsolationPrecautions = change.New
		case domain.FieldAppointmentAt:
			at, err := time.Parse(time.RFC3339, change.New)
			if err != nil {
				return fmt.Errorf("decode appointment_at: %w", err)
			}
			if t.Timing.Mode() != domain.TimingAppointment {
				return fmt.Errorf("trip has no appointment: %w", apperr.ErrConflict)
			}
			t.Timing = domain.AppointmentAt(at)
		}
	}
	return nil
}
