package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
)

// querier is the subset shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queries holds every statement of the trip store. It runs either on the pool or inside a tx.
type queries struct {
	q querier
}

// TripRepo represents the Postgres trip store.
type TripRepo struct {
	queries
	db *pgxpool.Pool
}

// NewTripRepo creates a new TripRepo.
func NewTripRepo(db *pgxpool.Pool) *TripRepo {
	return &TripRepo{queries: queries{q: db}, db: db}
}

var (
	_ triptx.Runner     = (*TripRepo)(nil)
	_ triptx.Repository = (*TxRepo)(nil)
)

// WithTx opens a transaction and executes fn within it. Domain errors from fn pass through
// unchanged; any other failure is reported as apperr.ErrTransaction.
func (r *TripRepo) WithTx(ctx context.Context, fn func(tx triptx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", apperr.ErrTransaction, err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				panic(rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(&TxRepo{queries: queries{q: tx}}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w: rollback tx: %w (original error: %s)", apperr.ErrTransaction, rbErr, err.Error())
		}
		if apperr.IsDomain(err) {
			return err
		}
		return fmt.Errorf("%w: %w", apperr.ErrTransaction, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit tx: %w", apperr.ErrTransaction, err)
	}

	return nil
}

// TxRepo represents transaction repository.
type TxRepo struct {
	queries
}
