package realtime

import (
	"context"
	"time"

	"example.com/walklog/internal/consumer"
	"example.com/walklog/internal/events"
)

// EventHandler turns walk events consumed from Kafka into hub changes.
type EventHandler struct {
	hub *Hub
}

// NewEventHandler returns a consumer.Handler publishing into hub.
func NewEventHandler(hub *Hub) *EventHandler {
	return &EventHandler{hub: hub}
}

// Handle publishes walk.logged, walk.updated and walk.deleted as INSERT, UPDATE
// and DELETE changes. Other event types are ignored.
func (h *EventHandler) Handle(_ context.Context, msg consumer.Message) error {
	var changeType string
	switch msg.EventType {
	case events.WalkLoggedType:
		changeType = ChangeInsert
	case events.WalkUpdatedType:
		changeType = ChangeUpdate
	case events.WalkDeletedType:
		changeType = ChangeDelete
	default:
		return nil
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	h.hub.Publish(Change{
		Table:     TableWalks,
		Type:      changeType,
		Record:    msg.Payload,
		Timestamp: ts,
	})
	return nil
}
