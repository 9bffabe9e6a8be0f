// Package audit derives fraud flags from an account's ledger history. It only
// reads, so it may run against a read replica.
package audit

import (
	"context"
	"fmt"
	"time"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/models"
	"walletledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Defaults applied when a caller leaves a parameter at zero.
const (
	DefaultWindowMinutes = 10
	DefaultCountLimit    = 5
	LargeScanLimit       = repositories.MaxListLimit

	// MaxWindowMinutes caps the trailing window at 30 days.
	MaxWindowMinutes = 30 * 24 * 60
)

var DefaultLargeThreshold = decimal.NewFromInt(1000)

type ActivityReport struct {
	Alert         bool  `json:"alert"`
	Count         int64 `json:"count"`
	WindowMinutes int   `json:"window_minutes"`
	CountLimit    int   `json:"count_limit"`
}

type Service struct {
	transactions repositories.TransactionRepository
	log          *logrus.Entry
}

func NewService(transactions repositories.TransactionRepository, log *logrus.Entry) *Service {
	return &Service{
		transactions: transactions,
		log:          log,
	}
}

// FlagLargeTransactions returns the most recent entries whose amount is at
// least threshold, newest first.
func (s *Service) FlagLargeTransactions(ctx context.Context, accountID uuid.UUID, threshold decimal.Decimal) ([]models.Transaction, error) {
	if !threshold.IsPositive() {
		return nil, fmt.Errorf("%w: threshold %s must be greater than zero", apperrors.ErrInvalidAmount, threshold)
	}

	flagged, err := s.transactions.ListLarge(ctx, accountID, threshold, LargeScanLimit)
	if err != nil {
		return nil, err
	}
	if len(flagged) > 0 {
		s.log.WithFields(logrus.Fields{
			"account_id": accountID,
			"threshold":  threshold.String(),
			"flagged":    len(flagged),
		}).Info("large transactions flagged")
	}
	return flagged, nil
}

// DetectUnusualActivity counts entries created in the trailing window and
// raises an alert when the count exceeds countLimit. Windows longer than
// MaxWindowMinutes are clamped; the report carries the window actually used.
func (s *Service) DetectUnusualActivity(ctx context.Context, accountID uuid.UUID, windowMinutes, countLimit int) (*ActivityReport, error) {
	switch {
	case windowMinutes <= 0:
		windowMinutes = DefaultWindowMinutes
	case windowMinutes > MaxWindowMinutes:
		windowMinutes = MaxWindowMinutes
	}
	if countLimit <= 0 {
		countLimit = DefaultCountLimit
	}

	count, err := s.transactions.CountWithin(ctx, accountID, time.Duration(windowMinutes)*time.Minute)
	if err != nil {
		return nil, err
	}

	report := &ActivityReport{
		Alert:         count > int64(countLimit),
		Count:         count,
		WindowMinutes: windowMinutes,
		CountLimit:    countLimit,
	}
	if report.Alert {
		s.log.WithFields(logrus.Fields{
			"account_id": accountID,
			"count":      count,
			"window":     windowMinutes,
		}).Warn("unusual account activity")
	}
	return report, nil
}
