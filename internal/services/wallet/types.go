package wallet

import (
	"time"

	"walletledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepositRequest credits an account. An empty Reference gets a generated one.
type DepositRequest struct {
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Reference   string
	Description string
}

// WithdrawRequest debits an account.
type WithdrawRequest struct {
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Reference   string
	Description string
}

// TransferRequest moves Amount from sender to receiver. The two ledger entries
// are recorded as Reference+":out" and Reference+":in".
type TransferRequest struct {
	SenderID    uuid.UUID
	ReceiverID  uuid.UUID
	Amount      decimal.Decimal
	Reference   string
	Description string
}

type OperationResult struct {
	NewBalance  decimal.Decimal    `json:"new_balance"`
	Transaction models.Transaction `json:"transaction"`
}

type TransferResult struct {
	SenderBalance   decimal.Decimal    `json:"sender_balance"`
	ReceiverBalance decimal.Decimal    `json:"receiver_balance"`
	Out             models.Transaction `json:"out"`
	In              models.Transaction `json:"in"`
}

// Config holds configuration for wallet operations
type Config struct {
	DefaultCurrency string

	// Transfers per sender allowed in TransferWindow. Zero disables the check.
	TransferLimit  int
	TransferWindow time.Duration

	// Attempts per operation when the store reports a conflict.
	MaxAttempts  int
	RetryBackoff time.Duration
}

// MetricsCollector defines the interface for collecting wallet metrics
type MetricsCollector interface {
	// Operation metrics
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)
	RecordConflictRetry(operation string)

	// Cache metrics
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)

	// Balance metrics
	RecordBalanceChange(accountID uuid.UUID, oldBalance, newBalance decimal.Decimal)

	// Error metrics
	RecordError(operation, errType string)

	// Transaction metrics
	RecordTransaction(txType models.TransactionType, amount decimal.Decimal)
}
