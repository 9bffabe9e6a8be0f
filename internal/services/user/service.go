package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/models"
	"walletledger/internal/repositories"
	"walletledger/internal/services/wallet"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Register(ctx context.Context, input models.CreateUserInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input models.UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// OwnerCache drops a deleted owner's cached account mapping.
type OwnerCache interface {
	Forget(ctx context.Context, ownerID uuid.UUID) error
}

type Config struct {
	AuthLimit       int
	AuthWindow      time.Duration
	BcryptCost      int
	DefaultCurrency string
}

type service struct {
	store   repositories.LedgerStore
	limiter wallet.RateLimiter
	cache   OwnerCache
	config  Config
	log     *logrus.Entry

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService wires the user service. limiter and cache may be nil.
func NewService(store repositories.LedgerStore, limiter wallet.RateLimiter, cache OwnerCache, config Config, log *logrus.Entry) Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = models.DefaultCurrency
	}
	return &service{
		store:   store,
		limiter: limiter,
		cache:   cache,
		config:  config,
		log:     log,
	}
}

func (s *service) Register(ctx context.Context, input models.CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := s.checkRate("register:" + email); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: string(hashedPassword),
	}

	err = s.store.ExecuteInTransaction(ctx, func(tx repositories.LedgerStore) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		account, err := wallet.OpenAccount(ctx, tx.Accounts(), user.ID, s.config.DefaultCurrency)
		if err != nil {
			return err
		}
		user.Account = account
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"account_id": user.Account.ID,
	}).Info("user registered")
	return user, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.checkRate("login:" + email); err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Spend the same bcrypt time as a real check.
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			s.log.WithField("email", email).Info("login failed: unknown email")
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.WithField("user_id", user.ID).Info("login failed: incorrect password")
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	account, err := s.store.Accounts().GetByOwner(ctx, userID)
	switch {
	case err == nil:
		user.Account = account
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies a partial update to the user. Changing the password
// requires the current one.
func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input models.UpdateUserInput) (*models.User, error) {
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.LedgerStore) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}

		if input.Email != nil {
			user.Email = strings.ToLower(strings.TrimSpace(*input.Email))
		}
		if input.FullName != nil {
			user.FullName = strings.TrimSpace(*input.FullName)
		}
		if input.Password != nil {
			if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)); err != nil {
				s.log.WithField("user_id", userID).Info("password change rejected: incorrect password")
				return apperrors.ErrInvalidCredentials
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), s.config.BcryptCost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			user.PasswordHash = string(hashed)
		}

		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":          userID,
		"password_changed": input.Password != nil,
	}).Info("user updated")
	return s.GetProfile(ctx, userID)
}

// Delete removes the user together with their wallet and its ledger.
func (s *service) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.DeleteOwner(ctx, userID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Forget(ctx, userID); err != nil {
			s.log.WithFields(logrus.Fields{"user_id": userID, "error": err}).Warn("failed to drop cached account")
		}
	}
	s.log.WithField("user_id", userID).Info("user deleted")
	return nil
}

func (s *service) checkRate(key string) error {
	if s.limiter == nil || s.config.AuthLimit <= 0 {
		return nil
	}
	return s.limiter.Check(key, s.config.AuthLimit, s.config.AuthWindow)
}

func (s *service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.config.BcryptCost)
	})
	return s.dummyHash
}
