package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a specific record is not found.
	ErrNotFound = errors.New("requested record not found")

	// ErrDatabaseError is returned for unexpected database errors.
	ErrDatabaseError = errors.New("database error")

	// ErrDuplicateKey is returned when an insert/update violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key value violates unique constraint")

	// ErrForeignKey is returned when a write would break a foreign key.
	ErrForeignKey = errors.New("foreign key constraint violation")

	// ErrConnection is returned when the database cannot be reached.
	ErrConnection = errors.New("database connection lost")

	// ErrConflict is returned when a guarded update finds the row in an unexpected state.
	ErrConflict = errors.New("record is not in the expected state")

	// ErrInUse is returned when a record cannot be deleted because others depend on it.
	ErrInUse = errors.New("record is referenced by other records")
)

// SQLExecutor is satisfied by *sql.DB and *sql.Tx so repository methods
// can run inside a transaction or directly against the pool.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// scanner is an interface satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// PostgreSQL error classes and codes.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqConnectionClass     = "08"
)

// mapDBError classifies err and wraps it with the matching sentinel.
// op describes what was being attempted, e.g. "creating client".
func mapDBError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %s: %w", ErrConnection, op, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case string(pqErr.Code) == pqUniqueViolation:
			return fmt.Errorf("%w: %s (constraint: %s): %w", ErrDuplicateKey, op, pqErr.Constraint, err)
		case string(pqErr.Code) == pqForeignKeyViolation:
			return fmt.Errorf("%w: %s (constraint: %s): %w", ErrForeignKey, op, pqErr.Constraint, err)
		case string(pqErr.Code.Class()) == pqConnectionClass:
			return fmt.Errorf("%w: %s: %w", ErrConnection, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrDatabaseError, op, err)
}

// ConstraintOf extracts the violated constraint name from a wrapped pq error.
func ConstraintOf(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

// expectOneRow turns a zero-row result into ErrNotFound.
func expectOneRow(result sql.Result, op string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for %s: %v", ErrDatabaseError, op, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// pageClause appends LIMIT/OFFSET placeholders starting at argIdx.
func pageClause(page, pageSize, argIdx int, args []interface{}) (string, []interface{}) {
	if pageSize <= 0 {
		return "", args
	}
	if page <= 0 {
		page = 1
	}
	clause := fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	return clause, append(args, pageSize, (page-1)*pageSize)
}

func isForeignKey(err error) bool {
	return errors.Is(err, ErrForeignKey)
}
