package wallet

import (
	"context"

	"walletledger/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GetAccountByOwner resolves the owner's account, consulting the owner cache
// first. The cache only maps owner to account id; the row itself is always
// read from the store so the balance is current.
func (s *service) GetAccountByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Account, error) {
	if s.cache != nil {
		if accountID, err := s.cache.GetAccountID(ctx, ownerID); err == nil {
			account, err := s.store.Accounts().GetByID(ctx, accountID)
			if err == nil && account.OwnerID == ownerID {
				s.metrics.RecordCacheHit(OwnerCacheName)
				return account, nil
			}
			s.log.WithField("owner_id", ownerID).Debug("stale owner cache entry")
		}
		s.metrics.RecordCacheMiss(OwnerCacheName)
	}

	account, err := s.store.Accounts().GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, account)
	return account, nil
}

func (s *service) remember(ctx context.Context, account *models.Account) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetAccountID(ctx, account.OwnerID, account.ID); err != nil {
		s.log.WithFields(logrus.Fields{
			"owner_id": account.OwnerID,
			"error":    err,
		}).Warn("failed to cache account owner")
	}
}
