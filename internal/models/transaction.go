package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

// Ledger entry types
const (
	TransactionTypeDeposit     TransactionType = "DEPOSIT"
	TransactionTypeWithdraw    TransactionType = "WITHDRAW"
	TransactionTypeTransferOut TransactionType = "TRANSFER_OUT"
	TransactionTypeTransferIn  TransactionType = "TRANSFER_IN"
)

// IsCredit reports whether entries of this type add to the balance.
func (t TransactionType) IsCredit() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeTransferIn
}

// Transaction is an immutable ledger entry. CreatedAt is assigned by the
// database on insert.
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_account_created,priority:1" json:"account_id"`
	Type        TransactionType `gorm:"type:varchar(16);not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null;check:amount > 0" json:"amount"`
	Reference   string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_transactions_reference" json:"reference"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;default:now();autoCreateTime:false;index:idx_transactions_account_created,priority:2" json:"created_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// SignedAmount returns the entry's effect on its account balance.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type.IsCredit() {
		return t.Amount
	}
	return t.Amount.Neg()
}
