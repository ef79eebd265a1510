// Package events publishes audit session lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic, keyed by session id so that the
// events of a session stay ordered within a partition.
type KafkaPublisher struct {
	writer  messageWriter
	brokers []string
	log     *slog.Logger
}

// NewKafkaPublisher creates a synchronous publisher for brokers/topic.
func NewKafkaPublisher(brokers []string, topic string, writeTimeout time.Duration, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			Async:                  false,
			WriteTimeout:           writeTimeout,
			AllowAutoTopicCreation: true,
		},
		brokers: brokers,
		log:     logger.With("adapter", "kafka", "topic", topic),
	}
}

// Ping succeeds when at least one broker accepts a connection.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	var lastErr error
	for _, b := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", b)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		return nil
	}
	if lastErr == nil {
		return fmt.Errorf("events: no brokers configured")
	}
	return fmt.Errorf("events: dial brokers: %w", lastErr)
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, e domain.SessionEvent) error {
	if p == nil || p.writer == nil {
		return nil
	}

	value, err := json.Marshal(toMessage(e))
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", e.Type, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.SessionID.String()),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", e.Type, err)
	}

	p.log.DebugContext(ctx, "event published",
		slog.String("type", e.Type.String()),
		slog.String("session_id", e.SessionID.String()),
	)
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, domain.SessionEvent) error { return nil }

func (Noop) Close() error { return nil }

// message is the wire form of domain.SessionEvent.
type message struct {
	ID         uuid.UUID         `json:"id"`
	Type       string            `json:"type"`
	SessionID  uuid.UUID         `json:"session_id"`
	PlanID     *uuid.UUID        `json:"plan_id,omitempty"`
	LocationID int64             `json:"location_id"`
	Status     string            `json:"status"`
	ActorID    uuid.UUID         `json:"actor_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func toMessage(e domain.SessionEvent) message {
	return message{
		ID:         e.ID,
		Type:       e.Type.String(),
		SessionID:  e.SessionID,
		PlanID:     e.PlanID,
		LocationID: e.LocationID,
		Status:     e.Status.String(),
		ActorID:    e.ActorID,
		Attributes: e.Attributes,
		OccurredAt: e.OccurredAt.UTC(),
	}
}
