package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"walletledger/internal/models"
	"walletledger/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ wallet.MetricsCollector = (*Collector)(nil)

func TestOperationMetrics(t *testing.T) {
	c := New()

	c.RecordOperationResult(wallet.OpDeposit, "success")
	c.RecordOperationResult(wallet.OpDeposit, "success")
	c.RecordOperationResult(wallet.OpWithdraw, "failure")
	c.RecordError(wallet.OpWithdraw, "INSUFFICIENT_FUNDS")
	c.RecordConflictRetry(wallet.OpTransfer)
	c.RecordOperationDuration(wallet.OpDeposit, 15*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.operationsTotal.WithLabelValues(wallet.OpDeposit, "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.operationsTotal.WithLabelValues(wallet.OpWithdraw, "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.errorsTotal.WithLabelValues(wallet.OpWithdraw, "INSUFFICIENT_FUNDS")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.conflictRetries.WithLabelValues(wallet.OpTransfer)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.operationDuration, "walletledger_operation_duration_seconds"))
}

func TestLedgerMetrics(t *testing.T) {
	c := New()

	c.RecordTransaction(models.TransactionTypeDeposit, decimal.RequireFromString("100.50"))
	c.RecordTransaction(models.TransactionTypeDeposit, decimal.RequireFromString("0.50"))
	c.RecordBalanceChange(uuid.New(), decimal.NewFromInt(100), decimal.NewFromInt(40))
	c.RecordCacheHit(wallet.OwnerCacheName)
	c.RecordCacheMiss(wallet.OwnerCacheName)
	c.RecordCacheMiss(wallet.OwnerCacheName)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.transactionsTotal.WithLabelValues("DEPOSIT")))
	assert.Equal(t, 101.0, testutil.ToFloat64(c.transactionVolume.WithLabelValues("DEPOSIT")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.cacheLookups.WithLabelValues(wallet.OwnerCacheName, "hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.cacheLookups.WithLabelValues(wallet.OwnerCacheName, "miss")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.balanceChanges, "walletledger_balance_change_amount"))
}

func TestMiddlewareAndHandler(t *testing.T) {
	c := New()
	app := fiber.New()
	app.Use(c.Middleware())
	app.Get("/api/transactions/:id", func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusNotFound)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/transactions/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/api/transactions/:id", "404")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "walletledger_http_requests_total")
	assert.Contains(t, string(body), "go_goroutines")
}
