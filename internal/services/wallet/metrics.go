package wallet

import (
	"time"

	"walletledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration)                  {}
func (n *NoopMetricsCollector) RecordOperationResult(string, string)                           {}
func (n *NoopMetricsCollector) RecordConflictRetry(string)                                     {}
func (n *NoopMetricsCollector) RecordCacheHit(string)                                          {}
func (n *NoopMetricsCollector) RecordCacheMiss(string)                                         {}
func (n *NoopMetricsCollector) RecordBalanceChange(uuid.UUID, decimal.Decimal, decimal.Decimal) {}
func (n *NoopMetricsCollector) RecordError(string, string)                                     {}
func (n *NoopMetricsCollector) RecordTransaction(models.TransactionType, decimal.Decimal)      {}
