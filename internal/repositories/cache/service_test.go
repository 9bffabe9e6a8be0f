package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountOwnerCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	svc := NewCacheService(db, time.Hour)
	ctx := context.Background()

	ownerID, accountID := uuid.New(), uuid.New()
	key := "account:owner:" + ownerID.String()

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, accountID.String(), time.Hour).SetVal("OK")
	mock.ExpectGet(key).SetVal(accountID.String())
	mock.ExpectDel(key).SetVal(1)

	_, err := svc.GetAccountID(ctx, ownerID)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, svc.SetAccountID(ctx, ownerID, accountID))

	got, err := svc.GetAccountID(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, accountID, got)

	require.NoError(t, svc.Forget(ctx, ownerID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountID_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	svc := NewCacheService(db, time.Minute)
	ctx := context.Background()
	ownerID := uuid.New()
	key := svc.GenerateKey("account", "owner", ownerID)

	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectGet(key).SetVal("not-a-uuid")

	_, err := svc.GetAccountID(ctx, ownerID)
	assert.ErrorContains(t, err, "connection refused")

	_, err = svc.GetAccountID(ctx, ownerID)
	assert.ErrorContains(t, err, "corrupt cached account id")
	assert.NoError(t, mock.ExpectationsWereMet())
}
