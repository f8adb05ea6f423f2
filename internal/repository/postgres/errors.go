package postgres

import (
	"context"
	"errors"
	"fmt"

	"blockdocs/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsPgDuplicateError checks if error is a unique constraint violation
func IsPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError checks if error is a foreign key violation
func IsPgForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23503 = foreign_key_violation
		return pgErr.Code == "23503"
	}
	return false
}

// IsPgRetryableError checks if error is transient lock contention
func IsPgRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03": // lock_not_available
			return true
		}
	}
	return false
}

// WrapDBError classifies a database error for the layers above.
// Lock contention is tagged domain.ErrRetryable; context expiry passes through;
// everything else becomes a *domain.StorageError.
func WrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case IsPgRetryableError(err):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrRetryable, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return &domain.StorageError{Op: op, Err: err}
	}
}
