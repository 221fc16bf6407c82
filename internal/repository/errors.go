package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the store reacts to.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsDuplicate reports a unique violation: a second bid, pending request, billing item or extension marker.
func IsDuplicate(err error) bool { return sqlState(err) == codeUniqueViolation }

// IsMissingReference reports a foreign key violation, e.g. a bid for an unknown trip or carrier.
func IsMissingReference(err error) bool { return sqlState(err) == codeForeignKeyViolation }

// IsNotFound reports an empty single-row result.
func IsNotFound(err error) bool { return errors.Is(err, pgx.ErrNoRows) }
