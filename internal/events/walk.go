// Package events defines the walk log event payloads published through the outbox.
package events

import "time"

// Event types carried in the event_type header.
const (
	WalkLoggedType  = "walk.logged"
	WalkUpdatedType = "walk.updated"
	WalkDeletedType = "walk.deleted"
)

// DefaultWalkTopic is the Kafka topic walk events are published to.
const DefaultWalkTopic = "walk_events"

// SchemaSubject returns the Schema Registry subject for values on topic.
func SchemaSubject(topic string) string {
	return topic + "-value"
}

// WalkLogged is emitted when a walk is added to the log.
type WalkLogged struct {
	WalkID     string    `json:"walk_id"`
	UserID     string    `json:"user_id"`
	Miles      float64   `json:"miles"`
	Notes      string    `json:"notes,omitempty"`
	Source     string    `json:"source"`
	ExternalID string    `json:"external_id,omitempty"`
	WalkedAt   time.Time `json:"walked_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WalkUpdated is emitted when an imported walk is edited upstream.
type WalkUpdated struct {
	WalkID     string    `json:"walk_id"`
	UserID     string    `json:"user_id"`
	Miles      float64   `json:"miles"`
	Notes      string    `json:"notes,omitempty"`
	ExternalID string    `json:"external_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WalkDeleted is emitted when the owner removes a walk from the log.
type WalkDeleted struct {
	WalkID     string    `json:"walk_id"`
	UserID     string    `json:"user_id"`
	Source     string    `json:"source"`
	ExternalID string    `json:"external_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
