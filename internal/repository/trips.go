package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

const tripColumns = `
	id, uuid, facility_id, carrier_id, status,
	asap, requested_pickup_at, appointment_at,
	bidding_closes_at, awarded_eta, carrier_completed_at, facility_completed_at,
	origin, destination, distance_miles::text, diagnosis, equipment, isolation_precautions,
	patient_first_name, patient_last_name, patient_dob, patient_ssn, patient_weight, patient_height,
	created_at, updated_at`

func scanTrip(row pgx.Row) (*domain.Trip, error) {
	var (
		t                                          domain.Trip
		status, distance                           string
		asap                                       bool
		pickup, appointment, carrierAt, facilityAt *time.Time
		diagnosis, first, last, dob, ssn, w, h     []byte
	)
	err := row.Scan(
		&t.ID, &t.UUID, &t.FacilityID, &t.CarrierID, &status,
		&asap, &pickup, &appointment,
		&t.BiddingClosesAt, &t.AwardedETA, &carrierAt, &facilityAt,
		&t.Details.Origin, &t.Details.Destination, &distance, &diagnosis,
		&t.Details.Equipment, &t.Details.IsolationPrecautions,
		&first, &last, &dob, &ssn, &w, &h,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = domain.TripStatus(status)
	if t.Timing, err = domain.TimingFromColumns(asap, pickup, appointment); err != nil {
		return nil, fmt.Errorf("trip %d: %w", t.ID, err)
	}
	if t.Completion, err = domain.CompletionFromTimestamps(carrierAt, facilityAt); err != nil {
		return nil, fmt.Errorf("trip %d: %w", t.ID, err)
	}
	if t.Details.DistanceMiles, err = decimal.NewFromString(distance); err != nil {
		return nil, fmt.Errorf("trip %d distance: %w", t.ID, err)
	}
	t.Details.Diagnosis = diagnosis
	t.Details.Patient = domain.Patient{
		FirstName: first, LastName: last, DOB: dob, SSN: ssn, Weight: w, Height: h,
	}
	return &t, nil
}

func (r queries) scanTrips(ctx context.Context, sql string, args ...any) ([]domain.Trip, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// InsertTrip - insert a new trip in its initial state.
func (r queries) InsertTrip(ctx context.Context, t *domain.Trip) error {
	asap, pickup, appointment := t.Timing.Columns()
	p := t.Details.Patient
	err := r.q.QueryRow(ctx, `
        INSERT INTO trips (
            uuid, facility_id, status, asap, requested_pickup_at, appointment_at, bidding_closes_at,
            origin, destination, distance_miles, diagnosis, equipment, isolation_precautions,
            patient_first_name, patient_last_name, patient_dob, patient_ssn, patient_weight, patient_height,
            created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $20)
        RETURNING id
    `,
		t.UUID, t.FacilityID, string(t.Status), asap, pickup, appointment, t.BiddingClosesAt,
		t.Details.Origin, t.Details.Destination, t.Details.DistanceMiles.String(), []byte(t.Details.Diagnosis),
		t.Details.Equipment, t.Details.IsolationPrecautions,
		[]byte(p.FirstName), []byte(p.LastName), []byte(p.DOB), []byte(p.SSN), []byte(p.Weight), []byte(p.Height),
		t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		switch {
		case IsDuplicate(err):
			return fmt.Errorf("insert trip: %w", apperr.ErrConflict)
		case IsMissingReference(err):
			return fmt.Errorf("insert trip: facility %d: %w", t.FacilityID, apperr.ErrNotFound)
		}
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

func (r queries) getTrip(ctx context.Context, what, sql string, arg any) (*domain.Trip, error) {
	t, err := scanTrip(r.q.QueryRow(ctx, sql, arg))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return t, nil
}

// GetTrip - get trip by internal ID.
func (r queries) GetTrip(ctx context.Context, id int64) (*domain.Trip, error) {
	return r.getTrip(ctx, fmt.Sprintf("get trip %d", id), `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id)
}

// GetTripByUUID - get trip by its public ID.
func (r queries) GetTripByUUID(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	return r.getTrip(ctx, fmt.Sprintf("get trip %s", id), `SELECT `+tripColumns+` FROM trips WHERE uuid = $1`, id)
}

// LockTrip - get trip by internal ID and hold its row lock until the tx ends.
func (r queries) LockTrip(ctx context.Context, id int64) (*domain.Trip, error) {
	return r.getTrip(ctx, fmt.Sprintf("lock trip %d", id), `SELECT `+tripColumns+` FROM trips WHERE id = $1 FOR UPDATE`, id)
}

// ListExpiredBidding - ids of bidding trips whose window has closed, oldest deadline first.
func (r queries) ListExpiredBidding(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.q.Query(ctx, `
        SELECT id FROM trips
        WHERE status = 'bidding' AND bidding_closes_at <= $1
        ORDER BY bidding_closes_at, id
    `, now)
	if err != nil {
		return nil, fmt.Errorf("list expired bidding: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("list expired bidding: %w", err)
	}
	return ids, nil
}

// ListOpenBidding - bidding trips whose window is still open, soonest deadline first.
func (r queries) ListOpenBidding(ctx context.Context, now time.Time) ([]domain.Trip, error) {
	trips, err := r.scanTrips(ctx, `
        SELECT `+tripColumns+` FROM trips
        WHERE status = 'bidding' AND bidding_closes_at > $1
        ORDER BY bidding_closes_at, id
    `, now)
	if err != nil {
		return nil, fmt.Errorf("list open bidding: %w", err)
	}
	return trips, nil
}

func (r queries) conditional(ctx context.Context, what string, sql string, args ...any) (bool, error) {
	ct, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", what, err)
	}
	return ct.RowsAffected() == 1, nil
}

// ExtendBidding - move the deadline of a still-bidding trip from `from` to `to`.
func (r queries) ExtendBidding(ctx context.Context, id int64, from, to time.Time) (bool, error) {
	return r.conditional(ctx, fmt.Sprintf("extend bidding %d", id), `
        UPDATE trips SET bidding_closes_at = $3, updated_at = now()
        WHERE id = $1 AND status = 'bidding' AND bidding_closes_at = $2
    `, id, from, to)
}

// AwardTrip - award a trip only if it is still bidding.
func (r queries) AwardTrip(ctx context.Context, id, carrierID int64, eta, now time.Time) (bool, error) {
	return r.conditional(ctx, fmt.Sprintf("award trip %d", id), `
        UPDATE trips
        SET status = 'awarded', carrier_id = $2, awarded_eta = $3, updated_at = $4
        WHERE id = $1 AND status = 'bidding' AND carrier_id IS NULL
    `, id, carrierID, eta, now)
}

// CancelTrip - cancel a trip currently in one of the given statuses.
func (r queries) CancelTrip(ctx context.Context, id int64, from []domain.TripStatus, now time.Time) (bool, error) {
	statuses := make([]string, 0, len(from))
	for _, s := range from {
		statuses = append(statuses, string(s))
	}
	return r.conditional(ctx, fmt.Sprintf("cancel trip %d", id), `
        UPDATE trips SET status = 'cancelled', updated_at = $3
        WHERE id = $1 AND status = ANY($2)
    `, id, statuses, now)
}

// RebroadcastTrip - return an awarded, not yet completed trip to bidding.
func (r queries) RebroadcastTrip(ctx context.Context, id int64, closesAt, now time.Time) (bool, error) {
	return r.conditional(ctx, fmt.Sprintf("rebroadcast trip %d", id), `
        UPDATE trips
        SET status = 'bidding', carrier_id = NULL, awarded_eta = NULL, bidding_closes_at = $2, updated_at = $3
        WHERE id = $1 AND status = 'awarded' AND carrier_completed_at IS NULL
    `, id, closesAt, now)
}

// UpdateAwardedETA - replace the ETA of an awarded trip.
func (r queries) UpdateAwardedETA(ctx context.Context, id int64, eta, now time.Time) (bool, error) {
	return r.conditional(ctx, fmt.Sprintf("update awarded eta %d", id), `
        UPDATE trips SET awarded_eta = $2, updated_at = $3
        WHERE id = $1 AND status = 'awarded'
    `, id, eta, now)
}

// UpdateTripDetails - overwrite the editable detail and timing columns.
func (r queries) UpdateTripDetails(ctx context.Context, t *domain.Trip, now time.Time) error {
	asap, pickup, appointment := t.Timing.Columns()
	p := t.Details.Patient
	ct, err := r.q.Exec(ctx, `
        UPDATE trips
        SET asap = $2, requested_pickup_at = $3, appointment_at = $4,
            equipment = $5, isolation_precautions = $6,
            patient_first_name = $7, patient_last_name = $8, patient_weight = $9, patient_height = $10,
            updated_at = $11
        WHERE id = $1
    `, t.ID, asap, pickup, appointment, t.Details.Equipment, t.Details.IsolationPrecautions,
		[]byte(p.FirstName), []byte(p.LastName), []byte(p.Weight), []byte(p.Height), now)
	if err != nil {
		return fmt.Errorf("update trip details %d: %w", t.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("trip %d not found", t.ID)
	}
	return nil
}

// MarkCarrierCompleted - record the carrier's completion report.
func (r queries) MarkCarrierCompleted(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.conditional(ctx, fmt.Sprintf("mark carrier completed %d", id), `
        UPDATE trips SET carrier_completed_at = $2, updated_at = $2
        WHERE id = $1 AND status = 'awarded' AND carrier_completed_at IS NULL
    `, id, at)
}

// MarkFacilityCompleted - record the facility confirmation and complete the trip.
func (r queries) MarkFacilityCompleted(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.conditional(ctx, fmt.Sprintf("mark facility completed %d", id), `
        UPDATE trips SET status = 'completed', facility_completed_at = $2, updated_at = $2
        WHERE id = $1 AND status = 'awarded'
          AND carrier_completed_at IS NOT NULL AND facility_completed_at IS NULL
    `, id, at)
}
