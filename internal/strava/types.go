package strava

import (
	"fmt"
	"time"

	"example.com/walklog/internal/domain"
)

// WebhookEvent is the JSON body Strava posts to the subscription callback.
type WebhookEvent struct {
	ObjectType     string         `json:"object_type"`
	ObjectID       int64          `json:"object_id"`
	AspectType     string         `json:"aspect_type"`
	OwnerID        int64          `json:"owner_id"`
	SubscriptionID int64          `json:"subscription_id"`
	EventTime      int64          `json:"event_time"`
	Updates        map[string]any `json:"updates,omitempty"`
}

// Notification converts the wire event into the domain notification.
func (e WebhookEvent) Notification() domain.Notification {
	return domain.Notification{
		ObjectType:     e.ObjectType,
		ObjectID:       e.ObjectID,
		AspectType:     e.AspectType,
		OwnerID:        e.OwnerID,
		SubscriptionID: e.SubscriptionID,
		EventTime:      e.EventTime,
		Updates:        flattenUpdates(e.Updates),
	}
}

// Strava documents update values as strings but has sent booleans for "private".
func flattenUpdates(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// Activity is the subset of the detailed activity representation the log needs.
type Activity struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	SportType string    `json:"sport_type"`
	Distance  float64   `json:"distance"`
	StartDate time.Time `json:"start_date"`
	Name      string    `json:"name"`
}

// Subscription is a push subscription registered for this application.
type Subscription struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	CallbackURL   string    `json:"callback_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
