package repositories

import (
	"context"
	"fmt"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerStore groups the repositories that must change together and runs
// them as one unit of work.
type LedgerStore interface {
	Accounts() AccountRepository
	Transactions() TransactionRepository
	Users() UserRepository

	// ExecuteInTransaction runs fn against repositories bound to a single
	// database transaction. It commits when fn returns nil and rolls back
	// otherwise, including when ctx is cancelled.
	ExecuteInTransaction(ctx context.Context, fn func(LedgerStore) error) error

	// DeleteOwner removes the owner's transactions, account and user atomically.
	DeleteOwner(ctx context.Context, ownerID uuid.UUID) error
}

type ledgerStore struct {
	db           *gorm.DB
	accounts     AccountRepository
	transactions TransactionRepository
	users        UserRepository
}

func NewLedgerStore(db *gorm.DB) LedgerStore {
	return &ledgerStore{
		db:           db,
		accounts:     NewAccountRepository(db),
		transactions: NewTransactionRepository(db),
		users:        NewUserRepository(db),
	}
}

func (s *ledgerStore) Accounts() AccountRepository         { return s.accounts }
func (s *ledgerStore) Transactions() TransactionRepository { return s.transactions }
func (s *ledgerStore) Users() UserRepository               { return s.users }

func (s *ledgerStore) ExecuteInTransaction(ctx context.Context, fn func(LedgerStore) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewLedgerStore(tx))
	})
	return classifyError(err)
}

func (s *ledgerStore) DeleteOwner(ctx context.Context, ownerID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accountIDs := tx.Model(&models.Account{}).Select("id").Where("owner_id = ?", ownerID)
		if err := tx.Where("account_id IN (?)", accountIDs).Delete(&models.Transaction{}).Error; err != nil {
			return fmt.Errorf("failed to delete transactions of owner %s: %w", ownerID, classifyError(err))
		}
		if err := tx.Where("owner_id = ?", ownerID).Delete(&models.Account{}).Error; err != nil {
			return fmt.Errorf("failed to delete account of owner %s: %w", ownerID, classifyError(err))
		}

		result := tx.Where("id = ?", ownerID).Delete(&models.User{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete user %s: %w", ownerID, classifyError(result.Error))
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("failed to delete user %s: %w", ownerID, apperrors.ErrNotFound)
		}
		return nil
	})
	return classifyError(err)
}
