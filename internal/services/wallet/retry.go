package wallet

import (
	"context"
	"errors"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/repositories"

	"github.com/eapache/go-resiliency/retrier"
	"github.com/sirupsen/logrus"
)

// conflictClassifier retries only store conflicts (serialization failures,
// deadlocks, lock timeouts).
type conflictClassifier struct{}

func (conflictClassifier) Classify(err error) retrier.Action {
	switch {
	case err == nil:
		return retrier.Succeed
	case errors.Is(err, apperrors.ErrConflict):
		return retrier.Retry
	default:
		return retrier.Fail
	}
}

// runUnit executes fn as one unit of work, starting over with exponential
// backoff while the store reports a conflict. The error of the last attempt
// is returned once attempts run out.
func (s *service) runUnit(ctx context.Context, op string, fn func(tx repositories.LedgerStore) error) error {
	r := retrier.New(
		retrier.ExponentialBackoff(s.config.MaxAttempts-1, s.config.RetryBackoff),
		conflictClassifier{},
	)

	attempt := 0
	return r.RunCtx(ctx, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			s.metrics.RecordConflictRetry(op)
			s.log.WithFields(logrus.Fields{"operation": op, "attempt": attempt}).Warn("retrying after store conflict")
		}
		return s.store.ExecuteInTransaction(ctx, fn)
	})
}
