package wallet

import (
	"context"
	"errors"
	"fmt"

	apperrors "walletledger/internal/errors"

	"github.com/shopspring/decimal"
)

// validateAmount rejects non-positive amounts, amounts with more than two
// decimal places and amounts the numeric(12,2) columns cannot hold.
func validateAmount(amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return fmt.Errorf("%w: %s must be greater than zero", apperrors.ErrInvalidAmount, amount)
	case !amount.Equal(amount.Truncate(AmountScale)):
		return fmt.Errorf("%w: %s has more than %d decimal places", apperrors.ErrInvalidAmount, amount, AmountScale)
	case amount.GreaterThan(MaxAmount):
		return fmt.Errorf("%w: %s exceeds %s", apperrors.ErrInvalidAmount, amount, MaxAmount)
	}
	return nil
}

func validateReference(ref string) error {
	if len(ref) > MaxReferenceLength {
		return fmt.Errorf("%w: longer than %d characters", apperrors.ErrInvalidReference, MaxReferenceLength)
	}
	return nil
}

// errorType labels err for metrics.
func errorType(err error) string {
	if code := apperrors.Code(err); code != "" {
		return code
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "CANCELED"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	}
	return "INTERNAL"
}
