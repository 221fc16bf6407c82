package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

// InsertBid - insert a bid; a second bid by the same carrier on the trip is a conflict.
func (r queries) InsertBid(ctx context.Context, b *domain.Bid) error {
	err := r.q.QueryRow(ctx, `
        INSERT INTO bids (trip_id, carrier_id, user_id, eta, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `, b.TripID, b.CarrierID, b.UserID, b.ETA, b.CreatedAt).Scan(&b.ID)
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("insert bid: %w", apperr.ErrConflict)
		}
		return fmt.Errorf("insert bid: %w", err)
	}
	return nil
}

// ListBids - bids of a trip in submission order, ties broken by id.
func (r queries) ListBids(ctx context.Context, tripID int64) ([]domain.Bid, error) {
	rows, err := r.q.Query(ctx, `
        SELECT id, trip_id, carrier_id, user_id, eta, created_at
        FROM bids
        WHERE trip_id = $1
        ORDER BY created_at, id
    `, tripID)
	if err != nil {
		return nil, fmt.Errorf("list bids %d: %w", tripID, err)
	}
	defer rows.Close()

	out := make([]domain.Bid, 0)
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(&b.ID, &b.TripID, &b.CarrierID, &b.UserID, &b.ETA, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBid - remove a carrier's bid from a trip.
func (r queries) DeleteBid(ctx context.Context, tripID, carrierID int64) (bool, error) {
	return r.conditional(ctx, fmt.Sprintf("delete bid %d/%d", tripID, carrierID),
		`DELETE FROM bids WHERE trip_id = $1 AND carrier_id = $2`, tripID, carrierID)
}

// DeleteBidsForTrip - clear all bids of a trip before it goes back to bidding.
func (r queries) DeleteBidsForTrip(ctx context.Context, tripID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM bids WHERE trip_id = $1`, tripID); err != nil {
		return fmt.Errorf("delete bids for trip %d: %w", tripID, err)
	}
	return nil
}

// InsertLockout - bar a carrier from bidding on a trip again.
func (r queries) InsertLockout(ctx context.Context, tripID, carrierID int64, at time.Time) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO lockouts (trip_id, carrier_id, created_at)
        VALUES ($1, $2, $3)
        ON CONFLICT DO NOTHING
    `, tripID, carrierID, at)
	if err != nil {
		return fmt.Errorf("insert lockout %d/%d: %w", tripID, carrierID, err)
	}
	return nil
}

// LockedOutCarrierIDs - carriers barred from the trip.
func (r queries) LockedOutCarrierIDs(ctx context.Context, tripID int64) ([]int64, error) {
	return r.ids(ctx, "locked out carriers",
		`SELECT carrier_id FROM lockouts WHERE trip_id = $1 ORDER BY carrier_id`, tripID)
}

func (r queries) ids(ctx context.Context, what, sql string, args ...any) ([]int64, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return ids, nil
}
