package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operation names used in metrics and logs
const (
	OpCreateAccount = "create_account"
	OpDeposit       = "deposit"
	OpWithdraw      = "withdraw"
	OpTransfer      = "transfer"
)

// Default configuration values
const (
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 20 * time.Millisecond
)

// Amount limits follow the numeric(12,2) columns.
const (
	AmountScale        = 2
	MaxReferenceLength = 120
)

var MaxAmount = decimal.RequireFromString("9999999999.99")

// Cache names
const (
	OwnerCacheName = "account_owner"
)
