package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/fvorders/fvorders-api/logging"
)

const (
	TopicOrderEvents   = "orders.events"
	TopicProductEvents = "products.events"

	EventOrderPlaced        = "order.placed"
	EventOrderStatusUpdated = "order.status_updated"
	EventProductCreated     = "product.created"
	EventProductUpdated     = "product.updated"
	EventProductDeleted     = "product.deleted"

	eventVersion = 1
)

// ErrPublisherClosed is returned by Publish after Close
var ErrPublisherClosed = errors.New("event publisher is closed")

// Event is a domain event before it is wrapped in an envelope
// Actor is the authenticated admin that caused the event, empty for public actions.
type Event struct {
	Type    string
	Actor   string
	Payload any
}

// EventEnvelope is the wire format of every published event
type EventEnvelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	Actor        string          `json:"actor,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

// NewEnvelope wraps ev for producer, stamping a fresh event id
func NewEnvelope(producer string, ev Event, now time.Time) (EventEnvelope, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("failed to encode %s payload: %w", ev.Type, err)
	}
	return EventEnvelope{
		EventID:      uuid.NewString(),
		EventType:    ev.Type,
		EventVersion: eventVersion,
		OccurredAt:   now.UTC(),
		Producer:     producer,
		Actor:        ev.Actor,
		Payload:      payload,
	}, nil
}

// EventPublisher delivers domain events after the data they describe is committed
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, ev Event) error
	Close() error
}

// NoopPublisher drops every event; used when no brokers are configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, Event) error { return nil }
func (NoopPublisher) Close() error                                         { return nil }

// KafkaPublisher queues events in memory and writes them to Kafka from one goroutine
type KafkaPublisher struct {
	writer   *kafka.Writer
	producer string
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	inbox  chan kafka.Message
	done   chan struct{}
}

// NewKafkaPublisher starts the writer loop; Close must be called to flush it
func NewKafkaPublisher(brokers []string, producer string, buffer int, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
		producer: producer,
		logger:   logger,
		inbox:    make(chan kafka.Message, buffer),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for msg := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.logger.Error("kafka write failed", "topic", msg.Topic, "key", string(msg.Key), "error", err)
		}
		cancel()
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Error("kafka writer close failed", "error", err)
	}
}

// Publish enqueues ev; it blocks only while the buffer is full
func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, ev Event) error {
	envelope, err := NewEnvelope(p.producer, ev, time.Now())
	if err != nil {
		return err
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode event envelope: %w", err)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  envelope.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(ev.Type)},
			{Key: "x-event-version", Value: []byte(fmt.Sprint(eventVersion))},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, flushes the queue and closes the writer
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()

	<-p.done
	return nil
}

// publishEvent sends ev and logs a failure; the caller's write has already committed
type actorKey struct{}

// WithActor records the admin acting on behalf of the request in ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor, or "".
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

func publishEvent(ctx context.Context, events EventPublisher, topic, key string, ev Event) {
	if ev.Actor == "" {
		ev.Actor = ActorFromContext(ctx)
	}
	if err := events.Publish(ctx, topic, key, ev); err != nil {
		logging.FromContext(ctx).Warn("failed to publish event",
			"topic", topic, "event_type", ev.Type, "key", key, "error", err)
	}
}
