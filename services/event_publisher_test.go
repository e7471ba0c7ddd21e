package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNewEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	env, err := NewEnvelope("fvorders-api", Event{
		Type:    EventOrderPlaced,
		Payload: OrderStatusUpdatedPayload{OrderID: 7, Status: "Pending"},
	}, at)
	require.NoError(t, err)

	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, EventOrderPlaced, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, time.UTC, env.OccurredAt.Location())
	assert.JSONEq(t, `{"order_id":7,"status":"Pending"}`, string(env.Payload))

	other, err := NewEnvelope("fvorders-api", Event{Type: EventOrderPlaced}, at)
	require.NoError(t, err)
	assert.NotEqual(t, env.EventID, other.EventID)

	body, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"event_type":"order.placed"`)
	assert.NotContains(t, string(body), `"actor"`)

	tagged, err := NewEnvelope("fvorders-api", Event{Type: EventOrderStatusUpdated, Actor: "admin@example.com"}, at)
	require.NoError(t, err)
	body, err = json.Marshal(tagged)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"actor":"admin@example.com"`)
}

type capturePublisher struct{ events []Event }

func (c *capturePublisher) Publish(_ context.Context, _, _ string, ev Event) error {
	c.events = append(c.events, ev)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func TestPublishEvent_StampsActorFromContext(t *testing.T) {
	sink := &capturePublisher{}

	publishEvent(context.Background(), sink, TopicOrderEvents, "1", Event{Type: EventOrderPlaced})
	ctx := WithActor(context.Background(), "admin@example.com")
	publishEvent(ctx, sink, TopicOrderEvents, "1", Event{Type: EventOrderStatusUpdated})
	publishEvent(ctx, sink, TopicOrderEvents, "1", Event{Type: EventOrderStatusUpdated, Actor: "other@example.com"})

	require.Len(t, sink.events, 3)
	assert.Empty(t, sink.events[0].Actor)
	assert.Equal(t, "admin@example.com", sink.events[1].Actor)
	assert.Equal(t, "other@example.com", sink.events[2].Actor)
	assert.Equal(t, "admin@example.com", ActorFromContext(ctx))
	assert.Empty(t, ActorFromContext(context.Background()))
}

func TestNewEnvelope_UnencodablePayload(t *testing.T) {
	_, err := NewEnvelope("p", Event{Type: "x", Payload: make(chan int)}, time.Now())
	assert.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	var p EventPublisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), TopicOrderEvents, "1", Event{Type: EventOrderPlaced}))
	assert.NoError(t, p.Close())
}

func TestKafkaPublisher_CloseStopsWriterLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := NewKafkaPublisher([]string{"127.0.0.1:9"}, "fvorders-api", 4, nil)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "close is idempotent")

	err := p.Publish(context.Background(), TopicOrderEvents, "1", Event{Type: EventOrderPlaced})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestKafkaPublisher_PublishHonoursContext(t *testing.T) {
	p := &KafkaPublisher{
		producer: "fvorders-api",
		inbox:    make(chan kafka.Message),
		done:     make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, TopicOrderEvents, "1", Event{Type: EventOrderPlaced})
	assert.ErrorIs(t, err, context.Canceled)
}
