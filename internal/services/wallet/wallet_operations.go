package wallet

import (
	"context"
	"fmt"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/models"
	"walletledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Operation string

const (
	OperationCredit Operation = "credit"
	OperationDebit  Operation = "debit"
)

// balanceChange is one account mutation applied inside a unit.
type balanceChange struct {
	AccountID   uuid.UUID
	Operation   Operation
	Type        models.TransactionType
	Amount      decimal.Decimal
	Reference   string
	Description string
}

type appliedChange struct {
	OldBalance decimal.Decimal
	Account    models.Account
	Entry      models.Transaction
}

// apply mutates a locked account and records the matching ledger entry. The
// account must already be locked by the caller's unit.
func apply(ctx context.Context, tx repositories.LedgerStore, account *models.Account, ch balanceChange) (*appliedChange, error) {
	newBalance := account.Balance
	switch ch.Operation {
	case OperationDebit:
		if account.Balance.LessThan(ch.Amount) {
			return nil, fmt.Errorf("%w: account %s holds %s, requested %s",
				apperrors.ErrInsufficientFunds, account.ID, account.Balance.StringFixed(AmountScale), ch.Amount.StringFixed(AmountScale))
		}
		newBalance = account.Balance.Sub(ch.Amount)
	case OperationCredit:
		newBalance = account.Balance.Add(ch.Amount)
		if newBalance.GreaterThan(MaxAmount) {
			return nil, fmt.Errorf("%w: balance of account %s would exceed %s", apperrors.ErrInvalidAmount, account.ID, MaxAmount)
		}
	default:
		return nil, fmt.Errorf("unsupported operation: %s", ch.Operation)
	}

	updated, err := tx.Accounts().UpdateBalance(ctx, account.ID, newBalance)
	if err != nil {
		return nil, err
	}

	entry := &models.Transaction{
		AccountID:   account.ID,
		Type:        ch.Type,
		Amount:      ch.Amount,
		Reference:   ch.Reference,
		Description: ch.Description,
	}
	if err := tx.Transactions().Record(ctx, entry); err != nil {
		return nil, err
	}

	return &appliedChange{
		OldBalance: account.Balance,
		Account:    *updated,
		Entry:      *entry,
	}, nil
}

// applySingle locks one account and applies ch to it.
func applySingle(ctx context.Context, tx repositories.LedgerStore, ch balanceChange) (*appliedChange, error) {
	account, err := tx.Accounts().GetByIDForUpdate(ctx, ch.AccountID)
	if err != nil {
		return nil, err
	}
	return apply(ctx, tx, account, ch)
}

// OpenAccount creates the owner's wallet with a zero balance. It is used both
// standalone and inside the signup unit.
func OpenAccount(ctx context.Context, accounts repositories.AccountRepository, ownerID uuid.UUID, currency string) (*models.Account, error) {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	account := &models.Account{
		OwnerID:  ownerID,
		Balance:  decimal.Zero,
		Currency: currency,
	}
	if err := accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}
