package audit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/logger"
	"walletledger/internal/models"
	"walletledger/internal/repositories/memstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func record(t *testing.T, store *memstore.Store, accountID uuid.UUID, amount string) {
	t.Helper()
	err := store.Transactions().Record(context.Background(), &models.Transaction{
		AccountID: accountID,
		Type:      models.TransactionTypeDeposit,
		Amount:    decimal.RequireFromString(amount),
		Reference: uuid.NewString(),
	})
	require.NoError(t, err)
}

func newAuditService(store *memstore.Store) *Service {
	return NewService(store.Transactions(), logger.Discard())
}

func TestFlagLargeTransactions(t *testing.T) {
	store := memstore.New()
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store.SetClock(clock.Now)
	svc := newAuditService(store)
	accountID := uuid.New()

	for _, amount := range []string{"999.99", "1000.00", "15.00", "2500.50"} {
		record(t, store, accountID, amount)
		clock.Advance(time.Minute)
	}
	record(t, store, uuid.New(), "5000.00")

	flagged, err := svc.FlagLargeTransactions(context.Background(), accountID, DefaultLargeThreshold)
	require.NoError(t, err)
	require.Len(t, flagged, 2)
	assert.Equal(t, "2500.5", flagged[0].Amount.String())
	assert.Equal(t, "1000", flagged[1].Amount.String())
}

func TestFlagLargeTransactions_InvalidThreshold(t *testing.T) {
	svc := NewService(memstore.New().Transactions(), logger.Discard())

	for _, threshold := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-1)} {
		_, err := svc.FlagLargeTransactions(context.Background(), uuid.New(), threshold)
		assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
	}
}

func TestDetectUnusualActivity(t *testing.T) {
	tests := []struct {
		name      string
		recent    int
		old       int
		wantAlert bool
	}{
		{"quiet account", 2, 10, false},
		{"exactly at the limit", 5, 0, false},
		{"over the limit", 6, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
			store.SetClock(clock.Now)
			svc := newAuditService(store)
			accountID := uuid.New()

			for i := 0; i < tt.old; i++ {
				record(t, store, accountID, "1.00")
			}
			clock.Advance(time.Hour)
			for i := 0; i < tt.recent; i++ {
				record(t, store, accountID, fmt.Sprintf("%d.00", i+1))
				clock.Advance(30 * time.Second)
			}

			report, err := svc.DetectUnusualActivity(context.Background(), accountID, 0, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.recent), report.Count)
			assert.Equal(t, tt.wantAlert, report.Alert)
			assert.Equal(t, DefaultWindowMinutes, report.WindowMinutes)
			assert.Equal(t, DefaultCountLimit, report.CountLimit)
		})
	}
}

func TestDetectUnusualActivity_WindowIsCapped(t *testing.T) {
	store := memstore.New()
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store.SetClock(clock.Now)
	svc := newAuditService(store)
	accountID := uuid.New()

	// outside the 30 day cap
	record(t, store, accountID, "1.00")
	clock.Advance(31 * 24 * time.Hour)
	for i := 0; i < 8; i++ {
		record(t, store, accountID, "2.00")
		clock.Advance(time.Second)
	}

	for _, minutes := range []int{10, MaxWindowMinutes + 1, 200000000, math.MaxInt} {
		report, err := svc.DetectUnusualActivity(context.Background(), accountID, minutes, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(8), report.Count, "minutes=%d", minutes)
		assert.True(t, report.Alert, "minutes=%d", minutes)
		if minutes > MaxWindowMinutes {
			assert.Equal(t, MaxWindowMinutes, report.WindowMinutes)
		}
	}
}
