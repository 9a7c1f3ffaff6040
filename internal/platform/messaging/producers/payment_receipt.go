package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ecocollect-billing/internal/config"
	"github.com/segmentio/kafka-go"
)

type PaymentReceiptProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// Creates a new payment receipt producer and ensures topic exists
func NewPaymentReceiptProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*PaymentReceiptProducer, error) {
	if cfg.ReceiptTopic == "" {
		return nil, fmt.Errorf("kafka receipt topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for receipt producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.ReceiptTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure receipt topic %s exists for receipt producer: %w", cfg.ReceiptTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.ReceiptTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Receipts are notifications, not the record of truth
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.ReceiptTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.ReceiptTopic, "count", len(messages))
			}
		},
	}

	return &PaymentReceiptProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ReceiptTopic,
	}, nil
}

func (p *PaymentReceiptProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for receipt producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message via receipt producer",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s via receipt producer: %w", p.topic, err)
	}

	p.logger.Debug("Published message via receipt producer",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *PaymentReceiptProducer) Close() error {
	p.logger.Info("Closing payment receipt Kafka message producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close receipt kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
