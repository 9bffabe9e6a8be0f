package repositories

import (
	"context"

	"walletledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository defines the database operations on wallets. It holds no
// business rules.
type AccountRepository interface {
	// Create stores a new account. A second account for the same owner fails
	// with ErrDuplicateAccount.
	Create(ctx context.Context, account *models.Account) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Account, error)

	// GetByIDForUpdate reads the account and locks its row until the enclosing
	// unit of work ends. Outside a unit the lock is released immediately.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error)

	// UpdateBalance overwrites the balance and returns the stored row.
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (*models.Account, error)
}
