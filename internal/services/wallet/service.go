package wallet

import (
	"bytes"
	"context"
	"fmt"
	"time"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/logger"
	"walletledger/internal/models"
	"walletledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type service struct {
	store   repositories.LedgerStore
	cache   AccountCache
	limiter RateLimiter
	events  EventPublisher
	config  Config
	metrics MetricsCollector
	log     *logrus.Entry
}

type Option func(*service)

func WithCache(cache AccountCache) Option {
	return func(s *service) { s.cache = cache }
}

// WithRateLimiter enables the per-sender transfer limit from Config.
func WithRateLimiter(limiter RateLimiter) Option {
	return func(s *service) { s.limiter = limiter }
}

func WithEventPublisher(events EventPublisher) Option {
	return func(s *service) { s.events = events }
}

func WithMetrics(metrics MetricsCollector) Option {
	return func(s *service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates a new wallet service
func NewService(store repositories.LedgerStore, config Config, opts ...Option) Service {
	if store == nil {
		panic("store is required")
	}

	if config.DefaultCurrency == "" {
		config.DefaultCurrency = models.DefaultCurrency
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultRetryBackoff
	}

	s := &service{
		store:   store,
		config:  config,
		metrics: &NoopMetricsCollector{},
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateAccount(ctx context.Context, ownerID uuid.UUID, currency string) (*models.Account, error) {
	start := time.Now()
	if currency == "" {
		currency = s.config.DefaultCurrency
	}

	account, err := OpenAccount(ctx, s.store.Accounts(), ownerID, currency)
	s.finish(OpCreateAccount, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"account_id": account.ID,
		"owner_id":   ownerID,
		"currency":   account.Currency,
	}).Info("account created")
	s.remember(ctx, account)
	return account, nil
}

func (s *service) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	return s.store.Accounts().GetByID(ctx, accountID)
}

func (s *service) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (s *service) Deposit(ctx context.Context, req DepositRequest) (*OperationResult, error) {
	return s.single(ctx, OpDeposit, balanceChange{
		AccountID:   req.AccountID,
		Operation:   OperationCredit,
		Type:        models.TransactionTypeDeposit,
		Amount:      req.Amount,
		Reference:   req.Reference,
		Description: req.Description,
	})
}

func (s *service) Withdraw(ctx context.Context, req WithdrawRequest) (*OperationResult, error) {
	return s.single(ctx, OpWithdraw, balanceChange{
		AccountID:   req.AccountID,
		Operation:   OperationDebit,
		Type:        models.TransactionTypeWithdraw,
		Amount:      req.Amount,
		Reference:   req.Reference,
		Description: req.Description,
	})
}

// single runs a deposit or withdrawal.
func (s *service) single(ctx context.Context, op string, ch balanceChange) (*OperationResult, error) {
	start := time.Now()
	if err := s.validate(ch.Amount, ch.Reference); err != nil {
		s.finish(op, start, err)
		return nil, err
	}
	if ch.Reference == "" {
		ch.Reference = uuid.NewString()
	}

	var applied *appliedChange
	err := s.runUnit(ctx, op, func(tx repositories.LedgerStore) error {
		var err error
		applied, err = applySingle(ctx, tx, ch)
		return err
	})
	s.finish(op, start, err)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}

	s.committed(ctx, op, applied)
	return &OperationResult{
		NewBalance:  applied.Account.Balance,
		Transaction: applied.Entry,
	}, nil
}

func (s *service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	start := time.Now()
	if req.SenderID == req.ReceiverID {
		err := fmt.Errorf("%w: account %s", apperrors.ErrSelfTransfer, req.SenderID)
		s.finish(OpTransfer, start, err)
		return nil, err
	}
	if err := s.validate(req.Amount, req.Reference); err != nil {
		s.finish(OpTransfer, start, err)
		return nil, err
	}
	if s.limiter != nil && s.config.TransferLimit > 0 {
		if err := s.limiter.Check("transfer:"+req.SenderID.String(), s.config.TransferLimit, s.config.TransferWindow); err != nil {
			s.finish(OpTransfer, start, err)
			return nil, err
		}
	}

	ref := req.Reference
	if ref == "" {
		ref = uuid.NewString()
	}

	var out, in *appliedChange
	err := s.runUnit(ctx, OpTransfer, func(tx repositories.LedgerStore) error {
		accounts, err := lockInOrder(ctx, tx, req.SenderID, req.ReceiverID)
		if err != nil {
			return err
		}
		sender, receiver := accounts[req.SenderID], accounts[req.ReceiverID]
		if sender.Currency != receiver.Currency {
			return fmt.Errorf("%w: %s to %s", apperrors.ErrCurrencyMismatch, sender.Currency, receiver.Currency)
		}

		out, err = apply(ctx, tx, sender, balanceChange{
			Operation:   OperationDebit,
			Type:        models.TransactionTypeTransferOut,
			Amount:      req.Amount,
			Reference:   ref + ":out",
			Description: req.Description,
		})
		if err != nil {
			return err
		}
		in, err = apply(ctx, tx, receiver, balanceChange{
			Operation:   OperationCredit,
			Type:        models.TransactionTypeTransferIn,
			Amount:      req.Amount,
			Reference:   ref + ":in",
			Description: req.Description,
		})
		return err
	})
	s.finish(OpTransfer, start, err)
	if err != nil {
		return nil, fmt.Errorf("transfer failed: %w", err)
	}

	s.committed(ctx, OpTransfer, out, in)
	return &TransferResult{
		SenderBalance:   out.Account.Balance,
		ReceiverBalance: in.Account.Balance,
		Out:             out.Entry,
		In:              in.Entry,
	}, nil
}

// lockInOrder locks the accounts in ascending id order so that opposite
// transfers between the same pair cannot deadlock.
func lockInOrder(ctx context.Context, tx repositories.LedgerStore, a, b uuid.UUID) (map[uuid.UUID]*models.Account, error) {
	first, second := a, b
	if bytes.Compare(first[:], second[:]) > 0 {
		first, second = second, first
	}

	locked := make(map[uuid.UUID]*models.Account, 2)
	for _, id := range []uuid.UUID{first, second} {
		account, err := tx.Accounts().GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = account
	}
	return locked, nil
}

func (s *service) ListTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Transaction, error) {
	if _, err := s.store.Accounts().GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.Transactions().ListByAccount(ctx, accountID, limit)
}

func (s *service) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return s.store.Transactions().GetByID(ctx, id)
}

func (s *service) validate(amount decimal.Decimal, reference string) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	return validateReference(reference)
}

// finish records the outcome metrics of an operation.
func (s *service) finish(op string, start time.Time, err error) {
	s.metrics.RecordOperationDuration(op, time.Since(start))
	if err != nil {
		s.metrics.RecordOperationResult(op, "failure")
		s.metrics.RecordError(op, errorType(err))
		return
	}
	s.metrics.RecordOperationResult(op, "success")
}

// committed runs the post-commit side effects. A publish failure is logged;
// the ledger already holds the entries.
func (s *service) committed(ctx context.Context, op string, changes ...*appliedChange) {
	entries := make([]models.Transaction, 0, len(changes))
	for _, ch := range changes {
		s.metrics.RecordBalanceChange(ch.Account.ID, ch.OldBalance, ch.Account.Balance)
		s.metrics.RecordTransaction(ch.Entry.Type, ch.Entry.Amount)
		entries = append(entries, ch.Entry)

		s.log.WithFields(logrus.Fields{
			"operation":  op,
			"account_id": ch.Account.ID,
			"type":       ch.Entry.Type,
			"amount":     ch.Entry.Amount.StringFixed(AmountScale),
			"reference":  ch.Entry.Reference,
			"balance":    ch.Account.Balance.StringFixed(AmountScale),
		}).Info("ledger entry committed")
	}

	if s.events == nil {
		return
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), entries...); err != nil {
		s.log.WithFields(logrus.Fields{
			"operation": op,
			"error":     err,
		}).Error("failed to publish ledger events")
	}
}
