package postgres

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"slotwise/backend/internal/store"
)

const (
	pgExclusionViolation   = "23P01"
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgUndefinedTable       = "42P01"
	pgUndefinedColumn      = "42703"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// translateError maps driver errors onto the store error hierarchy. Errors
// it does not recognize are returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var translated *store.ConstraintError
	if errors.As(err, &translated) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &store.ConstraintError{Kind: store.ErrNotFound, Err: err}
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	var kind error
	switch {
	case pgErr.Code == pgExclusionViolation, pgErr.Code == pgUniqueViolation:
		kind = store.ErrConflict
	case pgErr.Code == pgForeignKeyViolation:
		kind = store.ErrInvalidReference
	case pgErr.Code == pgCheckViolation, strings.HasPrefix(pgErr.Code, "22"):
		kind = store.ErrInvalidData
	case pgErr.Code == pgUndefinedTable, pgErr.Code == pgUndefinedColumn:
		kind = store.ErrMissingMigration
	default:
		return err
	}
	return &store.ConstraintError{Kind: kind, Constraint: pgErr.ConstraintName, Err: err}
}

// retryable reports whether the database aborted the transaction in a way
// that running it again can resolve.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgDeadlockDetected || pgErr.Code == pgSerializationFailure
}
