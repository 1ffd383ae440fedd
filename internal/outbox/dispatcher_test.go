package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/walklog/internal/events"
)

func TestDeliverFramesAndSetsHeaders(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	d := NewDispatcher(nil, producer, registry, time.Second, 10)

	payload := json.RawMessage(`{"walk_id":"w-1","user_id":"u-1","miles":1,"source":"strava","walked_at":"2024-06-01T08:00:00Z","occurred_at":"2024-06-01T08:05:00Z"}`)
	msgs := []Message{
		{EventID: 1, UserID: "u-1", EventType: events.WalkLoggedType, Topic: "walk_events", SchemaSubject: "walk_events-value", PartitionKey: "u-1", Payload: payload},
		{EventID: 2, UserID: "u-1", EventType: events.WalkLoggedType, Topic: "walk_events", SchemaSubject: "walk_events-value", PartitionKey: "u-1", Payload: payload},
	}

	require.NoError(t, d.deliver(context.Background(), msgs))
	require.Len(t, registry.calls, 1, "schema id cached across the batch")
	require.Len(t, producer.writes, 1)

	written := producer.writes[0]
	require.Equal(t, "walk_events", written.topic)
	require.Len(t, written.messages, 2)

	record := written.messages[0]
	require.Equal(t, []byte("u-1"), record.Key)
	require.Equal(t, byte(0), record.Value[0])
	require.Equal(t, uint32(42), binary.BigEndian.Uint32(record.Value[1:5]))
	require.JSONEq(t, string(payload), string(record.Value[5:]))
	require.Equal(t, events.WalkLoggedType, header(record, HeaderEventType))
	require.Equal(t, "u-1", header(record, HeaderUserID))
	require.Equal(t, "walk_events-value", header(record, HeaderSchemaSubject))
}

func TestDeliverRejectsUnknownEventType(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 1}
	d := NewDispatcher(nil, producer, registry, time.Second, 10)

	err := d.deliver(context.Background(), []Message{{EventType: "badge.awarded", Topic: "walk_events"}})
	require.ErrorContains(t, err, "no schema metadata for event_type=badge.awarded")
	require.Empty(t, producer.writes)
	require.Empty(t, registry.calls)
}

func TestDeliverWalkDeleted(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 7}
	d := NewDispatcher(nil, producer, registry, time.Second, 10)

	payload := json.RawMessage(`{"walk_id":"w-1","user_id":"u-1","source":"manual","occurred_at":"2024-06-01T08:05:00Z"}`)
	err := d.deliver(context.Background(), []Message{
		{EventID: 3, UserID: "u-1", EventType: events.WalkDeletedType, Topic: "walk_events", SchemaSubject: "walk_events-value", PartitionKey: "u-1", Payload: payload},
	})
	require.NoError(t, err)
	require.Len(t, registry.calls, 1)
	require.Equal(t, walkDeletedSchema, registry.calls[0].schema)
	require.Len(t, producer.writes, 1)
	require.Equal(t, events.WalkDeletedType, header(producer.writes[0].messages[0], HeaderEventType))
}

func TestBackoffDelayCapped(t *testing.T) {
	m := NewDLQManager(nil, 0, 0)
	require.Equal(t, 5, m.maxRetries)
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 4*time.Minute, m.backoffDelay(3))
	require.Equal(t, time.Hour, m.backoffDelay(8))
	require.Equal(t, time.Hour, m.backoffDelay(64))
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	copied := make([]kafka.Message, len(msgs))
	copy(copied, msgs)
	s.writes = append(s.writes, writtenBatch{topic: topic, messages: copied})
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	err   error
	calls []schemaCall
}

type schemaCall struct {
	subject string
	schema  string
}

func (s *stubRegistry) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, schemaCall{subject: subject, schema: schema})
	if s.err != nil {
		return 0, s.err
	}
	if s.id == 0 {
		s.id = 1
	}
	return s.id, nil
}
