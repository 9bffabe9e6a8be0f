// Package events publishes committed ledger entries to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"walletledger/internal/config"
	"walletledger/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LedgerEvent is the message body for one ledger entry.
type LedgerEvent struct {
	EventID       uuid.UUID              `json:"event_id"`
	TransactionID uuid.UUID              `json:"transaction_id"`
	AccountID     uuid.UUID              `json:"account_id"`
	Type          models.TransactionType `json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	Reference     string                 `json:"reference"`
	CreatedAt     time.Time              `json:"created_at"`
}

func NewLedgerEvent(entry models.Transaction) LedgerEvent {
	return LedgerEvent{
		EventID:       uuid.New(),
		TransactionID: entry.ID,
		AccountID:     entry.AccountID,
		Type:          entry.Type,
		Amount:        entry.Amount,
		Reference:     entry.Reference,
		CreatedAt:     entry.CreatedAt,
	}
}

type Producer struct {
	producer sarama.SyncProducer
	topic    string
	log      *logrus.Entry
}

// NewProducer wraps an existing sync producer.
func NewProducer(producer sarama.SyncProducer, topic string, log *logrus.Entry) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

// Dial connects a sync producer to the configured brokers.
func Dial(cfg config.KafkaConfig, log *logrus.Entry) (*Producer, error) {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewProducer(producer, cfg.LedgerTopic, log), nil
}

// Publish sends one message per entry, keyed by account id so an account's
// entries stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, entries ...models.Transaction) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	messages := make([]*sarama.ProducerMessage, 0, len(entries))
	for _, entry := range entries {
		value, err := json.Marshal(NewLedgerEvent(entry))
		if err != nil {
			return fmt.Errorf("failed to marshal ledger event: %w", err)
		}
		messages = append(messages, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(entry.AccountID.String()),
			Value: sarama.ByteEncoder(value),
		})
	}

	if err := p.producer.SendMessages(messages); err != nil {
		p.log.WithFields(logrus.Fields{
			"topic":   p.topic,
			"entries": len(entries),
			"error":   err,
		}).Error("failed to publish ledger events")
		return fmt.Errorf("failed to publish ledger events: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

// Noop discards events. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, ...models.Transaction) error { return nil }

func (Noop) Close() error { return nil }
