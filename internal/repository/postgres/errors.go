package postgres

import (
	"errors"

	"github.com/andresuchdata/exportops/backend-go/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	sqlStateUndefinedTable  = "42P01"
	sqlStateUndefinedColumn = "42703"
)

// IsMissingTableError reports whether err means the queried relation or
// column does not exist. The server uses lib/pq and the seed CLI pgx, so both
// driver error types are inspected. Any other error, nil included, is false.
func IsMissingTableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, repository.ErrSourceMissing) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return isMissingCode(string(pqErr.Code))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isMissingCode(pgErr.Code)
	}

	return false
}

func isMissingCode(code string) bool {
	return code == sqlStateUndefinedTable || code == sqlStateUndefinedColumn
}
