package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Account owner caching. An account never changes owner, so the mapping is
// only written once and dropped when the owner is deleted.

func (s *CacheService) GetAccountID(ctx context.Context, ownerID uuid.UUID) (uuid.UUID, error) {
	raw, err := s.client.Get(ctx, s.GenerateKey("account", "owner", ownerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrCacheMiss
		}
		return uuid.Nil, fmt.Errorf("failed to get cached account: %w", err)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt cached account id %q: %w", raw, err)
	}
	return id, nil
}

func (s *CacheService) SetAccountID(ctx context.Context, ownerID, accountID uuid.UUID) error {
	return s.client.Set(ctx, s.GenerateKey("account", "owner", ownerID), accountID.String(), s.ttl).Err()
}

func (s *CacheService) Forget(ctx context.Context, ownerID uuid.UUID) error {
	return s.Delete(ctx, s.GenerateKey("account", "owner", ownerID))
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
