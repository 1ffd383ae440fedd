package domain

// Strava webhook object and aspect types.
const (
	ObjectTypeActivity = "activity"
	ObjectTypeAthlete  = "athlete"

	AspectCreate = "create"
	AspectUpdate = "update"
	AspectDelete = "delete"
)

// Notification is a Strava push event. Delivery is at-least-once and unordered.
type Notification struct {
	ObjectType     string
	ObjectID       int64
	AspectType     string
	OwnerID        int64
	SubscriptionID int64
	EventTime      int64
	Updates        map[string]string
}

// IsActivityChange reports whether the notification is an activity create or update.
func (n Notification) IsActivityChange() bool {
	if n.ObjectType != ObjectTypeActivity {
		return false
	}
	return n.AspectType == AspectCreate || n.AspectType == AspectUpdate
}
