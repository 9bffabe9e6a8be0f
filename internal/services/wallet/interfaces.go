package wallet

import (
	"context"
	"time"

	"walletledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service defines the main wallet service interface
type Service interface {
	// Wallet management
	CreateAccount(ctx context.Context, ownerID uuid.UUID, currency string) (*models.Account, error)
	GetAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	GetAccountByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Account, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)

	// Money movement
	Deposit(ctx context.Context, req DepositRequest) (*OperationResult, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*OperationResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)

	// Ledger queries
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

// AccountCache remembers which account belongs to an owner. The mapping never
// changes while the owner exists, so entries are never updated, only dropped.
type AccountCache interface {
	GetAccountID(ctx context.Context, ownerID uuid.UUID) (uuid.UUID, error)
	SetAccountID(ctx context.Context, ownerID, accountID uuid.UUID) error
}

type RateLimiter interface {
	Check(key string, limit int, window time.Duration) error
}

// EventPublisher receives ledger entries after their unit committed.
type EventPublisher interface {
	Publish(ctx context.Context, entries ...models.Transaction) error
}
