package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/walklog/internal/domain"
)

// NotificationLog records every reconciled webhook notification.
type NotificationLog struct {
	pool *pgxpool.Pool
}

// NewNotificationLog constructs a NotificationLog.
func NewNotificationLog(pool *pgxpool.Pool) *NotificationLog {
	return &NotificationLog{pool: pool}
}

// Record stores n with its outcome and the processing error, if any.
func (l *NotificationLog) Record(ctx context.Context, n domain.Notification, outcome domain.Outcome, procErr error) error {
	var updates []byte
	if len(n.Updates) > 0 {
		var err error
		if updates, err = json.Marshal(n.Updates); err != nil {
			return err
		}
	}

	var errText interface{}
	if procErr != nil {
		errText = procErr.Error()
	}

	const stmt = `INSERT INTO strava_webhook_events (object_type, object_id, aspect_type, owner_id, subscription_id, event_time, updates, outcome, error)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := l.pool.Exec(ctx, stmt,
		n.ObjectType,
		n.ObjectID,
		n.AspectType,
		n.OwnerID,
		n.SubscriptionID,
		time.Unix(n.EventTime, 0).UTC(),
		updates,
		outcome.String(),
		errText,
	)
	if err != nil {
		return storeError("record notification", err)
	}
	return nil
}
