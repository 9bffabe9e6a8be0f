package repositories

import (
	"errors"
	"fmt"

	apperrors "walletledger/internal/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SQLSTATE codes the store reacts to.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

var uniqueConstraintKinds = map[string]*apperrors.DomainError{
	"idx_transactions_reference": apperrors.ErrDuplicateReference,
	"idx_accounts_owner":         apperrors.ErrDuplicateAccount,
	"idx_users_email":            apperrors.ErrEmailTaken,
}

// classifyError maps driver errors onto domain error kinds. Errors it does
// not recognise are returned unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		if kind, ok := uniqueConstraintKinds[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %s", kind, pgErr.Detail)
		}
		return err
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return fmt.Errorf("%w: %s (%s)", apperrors.ErrConflict, pgErr.Message, pgErr.Code)
	default:
		return err
	}
}
