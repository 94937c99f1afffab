package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	repo "github.com/baharkarakas/ledger-backend/internal/repository"
)

const balanceConstraint = "accounts_balance_check"

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func pgConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// retryable reports whether the whole unit can safely be replayed.
func retryable(err error) bool {
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return repo.ErrNotFound
	}
	switch pgCode(err) {
	case codeUniqueViolation:
		return repo.ErrDuplicate
	case codeForeignKeyViolation:
		// transaction row for an account that does not exist
		return repo.ErrNotFound
	case codeCheckViolation:
		if pgConstraint(err) == balanceConstraint {
			return repo.ErrNegativeBalance
		}
	}
	return err
}
