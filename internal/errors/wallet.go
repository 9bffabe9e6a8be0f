package errors

var (
	ErrNotFound = &DomainError{
		Code:    "NOT_FOUND",
		Message: "not found",
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "invalid amount",
	}
	ErrInsufficientFunds = &DomainError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient funds",
	}
	ErrSelfTransfer = &DomainError{
		Code:    "SELF_TRANSFER",
		Message: "cannot transfer to the same account",
	}
	ErrDuplicateReference = &DomainError{
		Code:    "DUPLICATE_REFERENCE",
		Message: "transaction reference already recorded",
	}
	ErrDuplicateAccount = &DomainError{
		Code:    "DUPLICATE_ACCOUNT",
		Message: "owner already has an account",
	}
	ErrRateLimited = &DomainError{
		Code:      "RATE_LIMITED",
		Message:   "too many requests, please try again later",
		Retryable: true,
	}
	ErrConflict = &DomainError{
		Code:      "CONFLICT",
		Message:   "concurrent update conflict, please retry",
		Retryable: true,
	}
)

var ErrCurrencyMismatch = &DomainError{
	Code:    "CURRENCY_MISMATCH",
	Message: "accounts hold different currencies",
}

var ErrInvalidReference = &DomainError{
	Code:    "INVALID_REFERENCE",
	Message: "invalid transaction reference",
}
