package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/cinerec/cinerec/internal/config"
	"github.com/cinerec/cinerec/pkg/models"
)

const (
	DefaultRatingEventsTopic = "rating-events"
	ConsumerGroup            = "rating-ingestors"
)

// RatingEventAction distinguishes submissions from removals on the bus.
const (
	ActionUpsert = "upsert"
	ActionRemove = "remove"
)

// RatingEvent is the message emitted for every ledger mutation, so
// downstream consumers (analytics, replicated ledgers) can follow along.
type RatingEvent struct {
	EventID   uuid.UUID     `json:"event_id"`
	Action    string        `json:"action"`
	Rating    models.Rating `json:"rating"`
	Timestamp time.Time     `json:"timestamp"`
}

// MessageBus publishes and consumes rating events over Kafka. A nil
// *MessageBus is a valid no-op bus: every method short-circuits, so
// callers never need to guard on whether streaming is configured.
type MessageBus struct {
	writer *kafka.Writer
	reader *kafka.Reader
	logger *logrus.Logger
}

func NewMessageBus(cfg *config.KafkaConfig, logger *logrus.Logger) (*MessageBus, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	topic := cfg.Topics.RatingEvents
	if topic == "" {
		topic = DefaultRatingEventsTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Key by user for per-user ordering
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        ConsumerGroup,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return &MessageBus{
		writer: writer,
		reader: reader,
		logger: logger,
	}, nil
}

// PublishRating emits a rating mutation. Publish failures are logged and
// returned but never block the ledger write that already happened.
func (mb *MessageBus) PublishRating(ctx context.Context, action string, rating models.Rating) error {
	if mb == nil {
		return nil
	}

	event := RatingEvent{
		EventID:   uuid.New(),
		Action:    action,
		Rating:    rating,
		Timestamp: time.Now().UTC(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal rating event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(rating.UserID), // Key by user for per-user ordering
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "action", Value: []byte(action)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := mb.writer.WriteMessages(writeCtx, message); err != nil {
		mb.logger.WithError(err).WithFields(logrus.Fields{
			"event_id": event.EventID,
			"user_id":  rating.UserID,
		}).Error("Failed to publish rating event to Kafka")
		return fmt.Errorf("failed to write rating event to Kafka: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"action":   action,
		"user_id":  rating.UserID,
		"movie_id": rating.MovieID,
	}).Debug("Rating event published to Kafka")

	return nil
}

// ConsumeRatingEvents reads events until ctx is cancelled, handing each
// decoded event to handler. Malformed messages are logged and skipped;
// handler errors are logged and the offset is still committed, since the
// ledger is the source of truth and a replay would be a no-op upsert.
func (mb *MessageBus) ConsumeRatingEvents(ctx context.Context, handler func(RatingEvent) error) error {
	if mb == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := mb.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				mb.logger.WithError(err).Error("Failed to read rating event from Kafka")
				continue
			}

			var event RatingEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				mb.logger.WithError(err).Error("Failed to unmarshal rating event")
				continue
			}

			if err := handler(event); err != nil {
				mb.logger.WithError(err).WithField("event_id", event.EventID).Error("Failed to process rating event")
			}
		}
	}
}

func (mb *MessageBus) Close() error {
	if mb == nil {
		return nil
	}

	var errs []error
	if err := mb.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}
	if err := mb.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing message bus: %v", errs)
	}
	return nil
}

// Metrics exposes consumer statistics for monitoring.
func (mb *MessageBus) Metrics() map[string]interface{} {
	if mb == nil {
		return nil
	}
	stats := mb.reader.Stats()
	return map[string]interface{}{
		"consumer_lag":    stats.Lag,
		"consumer_offset": stats.Offset,
		"messages_read":   stats.Messages,
		"bytes_read":      stats.Bytes,
		"rebalances":      stats.Rebalances,
		"timeouts":        stats.Timeouts,
		"errors":          stats.Errors,
	}
}
