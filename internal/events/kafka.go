package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/insyd/insyd/pkg/logger"
)

// KafkaConfig configures the Kafka activity producer.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes activities to a topic keyed by actor id, so one actor's
// activity stays ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	log    *zap.Logger
}

// NewKafkaPublisher builds an asynchronous producer. Delivery failures are
// reported through the writer completion callback and logged.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, broker := range cfg.Brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	log := logger.WithModule("events")
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.WriteTimeout,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("activity delivery failed", zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}

	return &KafkaPublisher{writer: writer, log: log}, nil
}

// Publish encodes the activity and hands it to the producer.
func (p *KafkaPublisher) Publish(ctx context.Context, activity Activity) error {
	payload, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("kafka: encode activity: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(activity.ActorID),
		Value: payload,
		Time:  activity.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(activity.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write activity: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes broker connections.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
