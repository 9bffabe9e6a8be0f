package repositories

import (
	"context"
	"fmt"
	"time"

	"walletledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{
		db: db,
	}
}

func (r *transactionRepository) Record(ctx context.Context, txn *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("failed to record transaction %q: %w", txn.Reference, classifyError(err))
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&txn).Error; err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, classifyError(err))
	}
	return &txn, nil
}

func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Limit(NormalizeLimit(limit)).
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions of account %s: %w", accountID, classifyError(err))
	}
	return txns, nil
}

func (r *transactionRepository) ListLarge(ctx context.Context, accountID uuid.UUID, threshold decimal.Decimal, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND amount >= ?", accountID, threshold).
		Order("created_at DESC, id DESC").
		Limit(NormalizeLimit(limit)).
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list large transactions of account %s: %w", accountID, classifyError(err))
	}
	return txns, nil
}

func (r *transactionRepository) CountWithin(ctx context.Context, accountID uuid.UUID, window time.Duration) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("account_id = ? AND created_at >= now() - make_interval(secs => ?)", accountID, window.Seconds()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions of account %s: %w", accountID, classifyError(err))
	}
	return count, nil
}
