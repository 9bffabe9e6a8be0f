// Package memstore is an in-process LedgerStore. Units of work buffer their
// writes and apply them on commit; GetByIDForUpdate takes a per-row lock held
// until the unit ends, so concurrent units serialize on the rows they lock the
// way they would against PostgreSQL.
package memstore

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/models"
	"walletledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]models.User
	accounts map[uuid.UUID]models.Account
	txns     map[uuid.UUID]models.Transaction
	seq      map[uuid.UUID]int64
	next     int64
	rowLocks map[uuid.UUID]chan struct{}

	now func() time.Time

	failures []error
	lockLog  []uuid.UUID
}

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]models.User),
		accounts: make(map[uuid.UUID]models.Account),
		txns:     make(map[uuid.UUID]models.Transaction),
		seq:      make(map[uuid.UUID]int64),
		rowLocks: make(map[uuid.UUID]chan struct{}),
		now:      time.Now,
	}
}

// SetClock replaces the source of created_at timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailNextUnits makes the next len(errs) units fail with the given errors
// before running, the way a serialization failure aborts a transaction.
func (s *Store) FailNextUnits(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

// LockLog returns the account ids locked so far, in acquisition order.
func (s *Store) LockLog() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.lockLog...)
}

// Seed stores an account directly, bypassing the repositories.
func (s *Store) Seed(account models.Account) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.Currency == "" {
		account.Currency = models.DefaultCurrency
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = s.now()
	}
	s.accounts[account.ID] = account
	return account
}

// Entries returns every committed entry of the account, oldest first.
func (s *Store) Entries(accountID uuid.UUID) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(accountID, nil, func(models.Transaction) bool { return true }, false)
}

func (s *Store) Accounts() repositories.AccountRepository         { return &accountRepo{v: s.view(nil)} }
func (s *Store) Transactions() repositories.TransactionRepository { return &transactionRepo{v: s.view(nil)} }
func (s *Store) Users() repositories.UserRepository               { return &userRepo{v: s.view(nil)} }

func (s *Store) ExecuteInTransaction(ctx context.Context, fn func(repositories.LedgerStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	u := &unit{
		accounts: make(map[uuid.UUID]models.Account),
		users:    make(map[uuid.UUID]models.User),
	}
	defer s.release(u)

	if err := fn(&txStore{s: s, u: u}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(u)
}

func (s *Store) DeleteOwner(ctx context.Context, ownerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[ownerID]; !ok {
		return fmt.Errorf("failed to delete user %s: %w", ownerID, apperrors.ErrNotFound)
	}
	for id, acc := range s.accounts {
		if acc.OwnerID != ownerID {
			continue
		}
		for txID, txn := range s.txns {
			if txn.AccountID == id {
				delete(s.txns, txID)
				delete(s.seq, txID)
			}
		}
		delete(s.accounts, id)
	}
	delete(s.users, ownerID)
	return nil
}

// unit buffers the writes of one unit of work.
type unit struct {
	accounts map[uuid.UUID]models.Account
	users    map[uuid.UUID]models.User
	txns     []models.Transaction
	held     []uuid.UUID
}

type txStore struct {
	s *Store
	u *unit
}

func (t *txStore) Accounts() repositories.AccountRepository {
	return &accountRepo{v: t.s.view(t.u)}
}

func (t *txStore) Transactions() repositories.TransactionRepository {
	return &transactionRepo{v: t.s.view(t.u)}
}

func (t *txStore) Users() repositories.UserRepository {
	return &userRepo{v: t.s.view(t.u)}
}

// Nested units join the outer one.
func (t *txStore) ExecuteInTransaction(ctx context.Context, fn func(repositories.LedgerStore) error) error {
	return fn(t)
}

func (t *txStore) DeleteOwner(ctx context.Context, ownerID uuid.UUID) error {
	return t.s.DeleteOwner(ctx, ownerID)
}

type view struct {
	s *Store
	u *unit
}

func (s *Store) view(u *unit) view { return view{s: s, u: u} }

func (s *Store) lockRow(ctx context.Context, u *unit, id uuid.UUID) error {
	for _, h := range u.held {
		if h == id {
			return nil
		}
	}

	s.mu.Lock()
	ch, ok := s.rowLocks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.rowLocks[id] = ch
	}
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.lockLog = append(s.lockLog, id)
	s.mu.Unlock()
	u.held = append(u.held, id)
	return nil
}

func (s *Store) release(u *unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range u.held {
		<-s.rowLocks[id]
	}
	u.held = nil
}

func (s *Store) commit(u *unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range u.users {
		if err := s.checkEmailLocked(user); err != nil {
			return err
		}
	}
	for _, acc := range u.accounts {
		if err := s.checkOwnerLocked(acc); err != nil {
			return err
		}
	}
	refs := make(map[string]struct{}, len(u.txns))
	for _, txn := range u.txns {
		if _, dup := refs[txn.Reference]; dup {
			return duplicateReference(txn.Reference)
		}
		refs[txn.Reference] = struct{}{}
		if err := s.checkReferenceLocked(txn.Reference); err != nil {
			return err
		}
	}

	for id, user := range u.users {
		s.users[id] = user
	}
	for id, acc := range u.accounts {
		s.accounts[id] = acc
	}
	for _, txn := range u.txns {
		s.insertTxnLocked(txn)
	}
	return nil
}

func (s *Store) checkEmailLocked(user models.User) error {
	for id, existing := range s.users {
		if id != user.ID && existing.Email == user.Email {
			return fmt.Errorf("failed to create user: %w", apperrors.ErrEmailTaken)
		}
	}
	return nil
}

func (s *Store) checkOwnerLocked(acc models.Account) error {
	for id, existing := range s.accounts {
		if id != acc.ID && existing.OwnerID == acc.OwnerID {
			return fmt.Errorf("failed to create account: %w", apperrors.ErrDuplicateAccount)
		}
	}
	return nil
}

func (s *Store) checkReferenceLocked(ref string) error {
	for _, existing := range s.txns {
		if existing.Reference == ref {
			return duplicateReference(ref)
		}
	}
	return nil
}

func duplicateReference(ref string) error {
	return fmt.Errorf("failed to record transaction %q: %w", ref, apperrors.ErrDuplicateReference)
}

func (s *Store) insertTxnLocked(txn models.Transaction) {
	s.next++
	s.txns[txn.ID] = txn
	s.seq[txn.ID] = s.next
}

// listLocked returns matching entries of the account, including pending ones
// of u, ordered by creation.
func (s *Store) listLocked(accountID uuid.UUID, u *unit, keep func(models.Transaction) bool, newestFirst bool) []models.Transaction {
	type ranked struct {
		txn models.Transaction
		seq int64
	}
	var out []ranked
	for id, txn := range s.txns {
		if txn.AccountID == accountID && keep(txn) {
			out = append(out, ranked{txn, s.seq[id]})
		}
	}
	if u != nil {
		for i, txn := range u.txns {
			if txn.AccountID == accountID && keep(txn) {
				out = append(out, ranked{txn, s.next + int64(i) + 1})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.txn.CreatedAt.Equal(b.txn.CreatedAt) {
			if newestFirst {
				return a.txn.CreatedAt.After(b.txn.CreatedAt)
			}
			return a.txn.CreatedAt.Before(b.txn.CreatedAt)
		}
		if newestFirst {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})

	txns := make([]models.Transaction, len(out))
	for i, r := range out {
		txns[i] = r.txn
	}
	return txns
}

type accountRepo struct{ v view }

func (r *accountRepo) Create(ctx context.Context, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.Currency == "" {
		account.Currency = models.DefaultCurrency
	}

	s := r.v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	account.CreatedAt = s.now()
	if err := s.checkOwnerLocked(*account); err != nil {
		return err
	}
	if r.v.u != nil {
		for id, pending := range r.v.u.accounts {
			if id != account.ID && pending.OwnerID == account.OwnerID {
				return fmt.Errorf("failed to create account: %w", apperrors.ErrDuplicateAccount)
			}
		}
		r.v.u.accounts[account.ID] = *account
		return nil
	}
	s.accounts[account.ID] = *account
	return nil
}

func (r *accountRepo) get(id uuid.UUID) (*models.Account, error) {
	s := r.v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.v.u != nil {
		if acc, ok := r.v.u.accounts[id]; ok {
			return &acc, nil
		}
	}
	acc, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("failed to get account %s: %w", id, apperrors.ErrNotFound)
	}
	return &acc, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.get(id)
}

func (r *accountRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.v.u != nil {
		for _, acc := range r.v.u.accounts {
			if acc.OwnerID == ownerID {
				return &acc, nil
			}
		}
	}
	for _, acc := range s.accounts {
		if acc.OwnerID == ownerID {
			return &acc, nil
		}
	}
	return nil, fmt.Errorf("failed to get account of owner %s: %w", ownerID, apperrors.ErrNotFound)
}

func (r *accountRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if r.v.u != nil {
		if _, err := r.get(id); err != nil {
			return nil, err
		}
		if err := r.v.s.lockRow(ctx, r.v.u, id); err != nil {
			return nil, fmt.Errorf("failed to lock account %s: %w", id, err)
		}
	}
	return r.get(id)
}

func (r *accountRepo) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("failed to update balance of account %s: violates check constraint balance >= 0", id)
	}

	acc, err := r.get(id)
	if err != nil {
		return nil, err
	}
	acc.Balance = balance

	s := r.v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.v.u != nil {
		r.v.u.accounts[id] = *acc
	} else {
		s.accounts[id] = *acc
	}
	return acc, nil
}

type transactionRepo struct{ v view }

func (r *transactionRepo) Record(ctx context.Context, txn *models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("failed to record transaction %q: violates check constraint amount > 0", txn.Reference)
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}

	s := r.v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReferenceLocked(txn.Reference); err != nil {
		return err
	}
	txn.CreatedAt = s.now()
	if r.v.u != nil {
		for _, pending := range r.v.u.txns {
			if pending.Reference == txn.Reference {
				return duplicateReference(txn.Reference)
			}
		}
		r.v.u.txns = append(r.v.u.txns, *txn)
		return nil
	}
	s.insertTxnLocked(*txn)
	return nil
}

func (r *transactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	s := r.v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.v.u != nil {
		for _, txn := range r.v.u.txns {
			if txn.ID == id {
				return &txn, nil
			}
		}
	}
	txn, ok := s.txns[id]
	if !ok {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, apperrors.ErrNotFound)
	}
	return &txn, nil
}

func (r *transactionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Transaction, error) {
	return r.list(accountID, limit, func(models.Transaction) bool { return true }), nil
}

func (r *transactionRepo) ListLarge(ctx context.Context, accountID uuid.UUID, threshold decimal.Decimal, limit int) ([]models.Transaction, error) {
	return r.list(accountID, limit, func(txn models.Transaction) bool {
		return txn.Amount.GreaterThanOrEqual(threshold)
	}), nil
}

func (r *transactionRepo) CountWithin(ctx context.Context, accountID uuid.UUID, window time.Duration) (int64, error) {
	r.v.s.mu.Lock()
	since := r.v.s.now().Add(-window)
	r.v.s.mu.Unlock()

	txns := r.list(accountID, -1, func(txn models.Transaction) bool {
		return !txn.CreatedAt.Before(since)
	})
	return int64(len(txns)), nil
}

// list applies repositories.NormalizeLimit unless limit is negative.
func (r *transactionRepo) list(accountID uuid.UUID, limit int, keep func(models.Transaction) bool) []models.Transaction {
	s := r.v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	txns := s.listLocked(accountID, r.v.u, keep, true)
	if limit >= 0 {
		if n := repositories.NormalizeLimit(limit); len(txns) > n {
			txns = txns[:n]
		}
	}
	return txns
}

type userRepo struct{ v view }

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = normalizeEmail(user.Email)

	s := r.v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEmailLocked(*user); err != nil {
		return err
	}
	now := s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	stored.Account = nil
	if r.v.u != nil {
		r.v.u.users[user.ID] = stored
		return nil
	}
	s.users[user.ID] = stored
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	user.Email = normalizeEmail(user.Email)

	s := r.v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if r.v.u != nil {
		if pending, found := r.v.u.users[user.ID]; found {
			existing, ok = pending, true
		}
	}
	if !ok {
		return fmt.Errorf("failed to update user %s: %w", user.ID, apperrors.ErrNotFound)
	}
	if err := s.checkEmailLocked(*user); err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, apperrors.ErrEmailTaken)
	}

	existing.Email = user.Email
	existing.FullName = user.FullName
	existing.PasswordHash = user.PasswordHash
	existing.UpdatedAt = s.now()
	user.UpdatedAt = existing.UpdatedAt
	if r.v.u != nil {
		r.v.u.users[user.ID] = existing
		return nil
	}
	s.users[user.ID] = existing
	return nil
}

func (r *userRepo) find(match func(models.User) bool) (*models.User, error) {
	s := r.v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.v.u != nil {
		for _, user := range r.v.u.users {
			if match(user) {
				return &user, nil
			}
		}
	}
	for _, user := range s.users {
		if match(user) {
			return &user, nil
		}
	}
	return nil, fmt.Errorf("failed to get user: %w", apperrors.ErrNotFound)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AscendingIDs reports whether ids are in the order the ledger locks rows.
func AscendingIDs(ids []uuid.UUID) bool {
	for i := 1; i < len(ids); i++ {
		if bytes.Compare(ids[i-1][:], ids[i][:]) > 0 {
			return false
		}
	}
	return true
}

var _ repositories.LedgerStore = (*Store)(nil)
var _ repositories.LedgerStore = (*txStore)(nil)
