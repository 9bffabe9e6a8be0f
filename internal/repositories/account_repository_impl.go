package repositories

import (
	"context"
	"fmt"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", classifyError(err))
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, classifyError(err))
	}
	return &account, nil
}

func (r *accountRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Take(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to get account of owner %s: %w", ownerID, classifyError(err))
	}
	return &account, nil
}

func (r *accountRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&account).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %s: %w", id, classifyError(err))
	}
	return &account, nil
}

func (r *accountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (*models.Account, error) {
	var account models.Account
	result := r.db.WithContext(ctx).
		Model(&account).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Update("balance", balance)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update balance of account %s: %w", id, classifyError(result.Error))
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("failed to update balance of account %s: %w", id, apperrors.ErrNotFound)
	}
	return &account, nil
}
