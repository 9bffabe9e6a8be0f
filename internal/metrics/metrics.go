// Package metrics exposes ledger and HTTP metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"walletledger/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "walletledger"

// Collector implements the wallet service's MetricsCollector on its own registry.
type Collector struct {
	registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	operationsTotal   *prometheus.CounterVec
	conflictRetries   *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	balanceChanges    *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	transactionsTotal *prometheus.CounterVec
	transactionVolume *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Ledger operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of ledger operations by result",
			},
			[]string{"operation", "result"},
		),
		conflictRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conflict_retries_total",
				Help:      "Units of work retried after a store conflict",
			},
			[]string{"operation"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by outcome",
			},
			[]string{"cache", "result"},
		),
		balanceChanges: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "balance_change_amount",
				Help:      "Absolute size of balance changes",
				Buckets:   []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"direction"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Failed ledger operations by error kind",
			},
			[]string{"operation", "type"},
		),
		transactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Ledger entries recorded",
			},
			[]string{"type"},
		),
		transactionVolume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transaction_amount_total",
				Help:      "Sum of recorded ledger entry amounts",
			},
			[]string{"type"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) RecordOperationDuration(operation string, duration time.Duration) {
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordOperationResult(operation, result string) {
	c.operationsTotal.WithLabelValues(operation, result).Inc()
}

func (c *Collector) RecordConflictRetry(operation string) {
	c.conflictRetries.WithLabelValues(operation).Inc()
}

func (c *Collector) RecordCacheHit(cache string) {
	c.cacheLookups.WithLabelValues(cache, "hit").Inc()
}

func (c *Collector) RecordCacheMiss(cache string) {
	c.cacheLookups.WithLabelValues(cache, "miss").Inc()
}

// RecordBalanceChange observes the size of the change. Account ids are not
// used as labels.
func (c *Collector) RecordBalanceChange(_ uuid.UUID, oldBalance, newBalance decimal.Decimal) {
	delta := newBalance.Sub(oldBalance)
	direction := "credit"
	if delta.IsNegative() {
		direction = "debit"
	}
	c.balanceChanges.WithLabelValues(direction).Observe(delta.Abs().InexactFloat64())
}

func (c *Collector) RecordError(operation, errorType string) {
	c.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

func (c *Collector) RecordTransaction(typ models.TransactionType, amount decimal.Decimal) {
	c.transactionsTotal.WithLabelValues(string(typ)).Inc()
	c.transactionVolume.WithLabelValues(string(typ)).Add(amount.InexactFloat64())
}

func (c *Collector) RecordHTTPRequest(method, path, status string, duration float64) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// Middleware records every request under its route pattern, not the raw path.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		path := ctx.Route().Path
		c.RecordHTTPRequest(ctx.Method(), path, strconv.Itoa(status), time.Since(start).Seconds())
		return err
	}
}
