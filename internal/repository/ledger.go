package repository

import (
	"context"
	"fmt"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

// AppendAudit - append a history entry.
func (r queries) AppendAudit(ctx context.Context, e *domain.AuditEntry) error {
	err := r.q.QueryRow(ctx, `
        INSERT INTO audit_log (trip_id, actor_user_id, event, detail, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `, e.TripID, e.ActorUserID, string(e.Event), e.Detail, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("append audit %s: %w", e.Event, apperr.ErrConflict)
		}
		return fmt.Errorf("append audit %s: %w", e.Event, err)
	}
	return nil
}

// AppendAuditOnce - append the entry unless the trip already has an event of that kind.
func (r queries) AppendAuditOnce(ctx context.Context, e *domain.AuditEntry) (bool, error) {
	err := r.q.QueryRow(ctx, `
        INSERT INTO audit_log (trip_id, actor_user_id, event, detail, created_at)
        SELECT $1, $2, $3, $4, $5
        WHERE NOT EXISTS (SELECT 1 FROM audit_log WHERE trip_id = $1 AND event = $3)
        ON CONFLICT DO NOTHING
        RETURNING id
    `, e.TripID, e.ActorUserID, string(e.Event), e.Detail, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("append audit once %s: %w", e.Event, err)
	}
	return true, nil
}

// HasAuditEvent - whether the trip history contains the event.
func (r queries) HasAuditEvent(ctx context.Context, tripID int64, event domain.AuditEvent) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM audit_log WHERE trip_id = $1 AND event = $2)`,
		tripID, string(event)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has audit event %s: %w", event, err)
	}
	return exists, nil
}

// ListAudit - history of a trip, oldest first.
func (r queries) ListAudit(ctx context.Context, tripID int64) ([]domain.AuditEntry, error) {
	rows, err := r.q.Query(ctx, `
        SELECT id, trip_id, actor_user_id, event, detail, created_at
        FROM audit_log WHERE trip_id = $1
        ORDER BY id
    `, tripID)
	if err != nil {
		return nil, fmt.Errorf("list audit %d: %w", tripID, err)
	}
	defer rows.Close()

	out := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var (
			e     domain.AuditEntry
			event string
		)
		if err := rows.Scan(&e.ID, &e.TripID, &e.ActorUserID, &event, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.Event = domain.AuditEvent(event)
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertBillingLineItem - record the award charge; one per (trip, winning bid).
func (r queries) InsertBillingLineItem(ctx context.Context, item *domain.BillingLineItem) error {
	err := r.q.QueryRow(ctx, `
        INSERT INTO billing_line_items (trip_id, bid_id, facility_id, carrier_id, amount, description, created_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
        RETURNING id
    `, item.TripID, item.BidID, item.FacilityID, item.CarrierID, item.Amount.String(), item.Description, item.CreatedAt).Scan(&item.ID)
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("insert billing line item: %w", apperr.ErrConflict)
		}
		return fmt.Errorf("insert billing line item: %w", err)
	}
	return nil
}
