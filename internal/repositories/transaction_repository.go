package repositories

import (
	"context"
	"time"

	"walletledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing bounds for ledger queries.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// TransactionRepository appends and reads ledger entries. Entries are never
// updated or deleted through it.
type TransactionRepository interface {
	// Record inserts the entry; CreatedAt is filled from the database. A
	// reference collision fails with ErrDuplicateReference.
	Record(ctx context.Context, txn *models.Transaction) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)

	// ListByAccount returns the newest entries first.
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Transaction, error)

	// ListLarge returns the newest entries with amount >= threshold.
	ListLarge(ctx context.Context, accountID uuid.UUID, threshold decimal.Decimal, limit int) ([]models.Transaction, error)

	// CountWithin counts entries created during the trailing window. The
	// cutoff is taken from the clock that stamps created_at.
	CountWithin(ctx context.Context, accountID uuid.UUID, window time.Duration) (int64, error)
}

// NormalizeLimit applies the default and the cap to a caller supplied limit.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
