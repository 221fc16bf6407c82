package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

// InsertChangeRequest - insert a pending request; a second pending one of the same kind is a conflict.
func (r queries) InsertChangeRequest(ctx context.Context, cr *domain.ChangeRequest) error {
	diff, err := json.Marshal(cr.Diff)
	if err != nil {
		return fmt.Errorf("encode diff: %w", err)
	}
	err = r.q.QueryRow(ctx, `
        INSERT INTO change_requests (trip_id, kind, requested_by, diff, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `, cr.TripID, string(cr.Kind), cr.RequestedByUserID, diff, string(cr.Status), cr.CreatedAt).Scan(&cr.ID)
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("insert change request: %w", apperr.ErrConflict)
		}
		return fmt.Errorf("insert change request: %w", err)
	}
	return nil
}

const changeRequestColumns = `id, trip_id, kind, requested_by, diff, status, resolved_by, resolved_at, follow_up, created_at`

func scanChangeRequest(row pgx.Row) (*domain.ChangeRequest, error) {
	var (
		cr           domain.ChangeRequest
		kind, status string
		diff         []byte
		followUp     *string
	)
	if err := row.Scan(&cr.ID, &cr.TripID, &kind, &cr.RequestedByUserID, &diff, &status,
		&cr.ResolvedByUserID, &cr.ResolvedAt, &followUp, &cr.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(diff, &cr.Diff); err != nil {
		return nil, fmt.Errorf("decode diff of change request %d: %w", cr.ID, err)
	}
	cr.Kind = domain.ChangeKind(kind)
	cr.Status = domain.ChangeStatus(status)
	if followUp != nil {
		f := domain.FollowUp(*followUp)
		cr.FollowUp = &f
	}
	return &cr, nil
}

// GetChangeRequestForUpdate - load a change request and lock it until the tx ends.
func (r queries) GetChangeRequestForUpdate(ctx context.Context, id int64) (*domain.ChangeRequest, error) {
	cr, err := scanChangeRequest(r.q.QueryRow(ctx,
		`SELECT `+changeRequestColumns+` FROM change_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get change request %d: %w", id, err)
	}
	return cr, nil
}

// ListChangeRequests - every request on a trip, newest first.
func (r queries) ListChangeRequests(ctx context.Context, tripID int64) ([]domain.ChangeRequest, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+changeRequestColumns+` FROM change_requests WHERE trip_id = $1 ORDER BY id DESC`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list change requests %d: %w", tripID, err)
	}
	defer rows.Close()

	out := make([]domain.ChangeRequest, 0)
	for rows.Next() {
		cr, err := scanChangeRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan change request: %w", err)
		}
		out = append(out, *cr)
	}
	return out, rows.Err()
}

// ResolveChangeRequest - terminalize a request that is still pending.
func (r queries) ResolveChangeRequest(ctx context.Context, id int64, status domain.ChangeStatus, byUserID int64, at time.Time) (bool, error) {
	return r.conditional(ctx, fmt.Sprintf("resolve change request %d", id), `
        UPDATE change_requests SET status = $2, resolved_by = $3, resolved_at = $4
        WHERE id = $1 AND status = 'pending'
    `, id, string(status), byUserID, at)
}

// SetFollowUp - record the facility's one-time choice after rejecting an ETA change.
func (r queries) SetFollowUp(ctx context.Context, id int64, f domain.FollowUp) (bool, error) {
	return r.conditional(ctx, fmt.Sprintf("set follow-up %d", id), `
        UPDATE change_requests SET follow_up = $2
        WHERE id = $1 AND kind = 'eta_change' AND status = 'rejected' AND follow_up IS NULL
    `, id, string(f))
}

// RejectPendingChangeRequests - close every pending request of a trip that left the awarded state.
func (r queries) RejectPendingChangeRequests(ctx context.Context, tripID int64, at time.Time) (int64, error) {
	ct, err := r.q.Exec(ctx, `
        UPDATE change_requests SET status = 'rejected', resolved_at = $2
        WHERE trip_id = $1 AND status = 'pending'
    `, tripID, at)
	if err != nil {
		return 0, fmt.Errorf("reject pending change requests %d: %w", tripID, err)
	}
	return ct.RowsAffected(), nil
}
