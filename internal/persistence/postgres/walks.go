// Package postgres implements the walk log stores on Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/walklog/internal/domain"
	"example.com/walklog/internal/events"
	"example.com/walklog/internal/observability"
)

// WalkRepository writes walks and their outbox events in one transaction.
type WalkRepository struct {
	pool  *pgxpool.Pool
	topic string
}

// NewWalkRepository constructs a WalkRepository publishing to topic.
func NewWalkRepository(pool *pgxpool.Pool, topic string) *WalkRepository {
	if topic == "" {
		topic = events.DefaultWalkTopic
	}
	return &WalkRepository{pool: pool, topic: topic}
}

// Insert stores a walk. A (user_id, external_id) collision returns domain.ErrDuplicateWalk.
func (r *WalkRepository) Insert(ctx context.Context, walk domain.Walk) (id string, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", storeError("begin insert walk", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	source := walk.Source
	if source == "" {
		source = domain.SourceManual
	}

	const insertWalk = `INSERT INTO walks (user_id, miles, notes, source, external_id, walked_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id::text, created_at`

	var createdAt time.Time
	err = tx.QueryRow(ctx, insertWalk,
		walk.UserID,
		walk.Miles,
		nullIfEmpty(walk.Notes),
		source,
		walk.ExternalID,
		walk.WalkedAt,
	).Scan(&id, &createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domain.ErrDuplicateWalk
		}
		return "", storeError("insert walk", err)
	}

	payload := events.WalkLogged{
		WalkID:     id,
		UserID:     walk.UserID,
		Miles:      walk.Miles,
		Notes:      walk.Notes,
		Source:     source,
		ExternalID: deref(walk.ExternalID),
		WalkedAt:   walk.WalkedAt.UTC(),
		OccurredAt: createdAt.UTC(),
	}
	if err = r.insertOutbox(ctx, tx, id, walk.UserID, events.WalkLoggedType, id+":"+events.WalkLoggedType, payload); err != nil {
		return "", storeError("insert walk outbox", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return "", storeError("commit insert walk", err)
	}
	observability.RecordWalkPersisted(createdAt)
	return id, nil
}

// UpdateStravaWalk replaces the notes and distance of an imported walk. A walk that
// no longer exists returns domain.ErrWalkNotFound.
func (r *WalkRepository) UpdateStravaWalk(ctx context.Context, id, notes string, miles float64) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storeError("begin update walk", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const updateWalk = `UPDATE walks SET notes = $2, miles = $3, updated_at = NOW()
        WHERE id = $1 AND source = 'strava'
        RETURNING user_id::text, COALESCE(external_id, ''), updated_at`

	var userID, externalID string
	var updatedAt time.Time
	err = tx.QueryRow(ctx, updateWalk, id, nullIfEmpty(notes), miles).Scan(&userID, &externalID, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrWalkNotFound
		}
		return storeError("update walk", err)
	}

	payload := events.WalkUpdated{
		WalkID:     id,
		UserID:     userID,
		Miles:      miles,
		Notes:      notes,
		ExternalID: externalID,
		OccurredAt: updatedAt.UTC(),
	}
	dedupe := fmt.Sprintf("%s:%s:%d", id, events.WalkUpdatedType, updatedAt.UnixNano())
	if err = r.insertOutbox(ctx, tx, id, userID, events.WalkUpdatedType, dedupe, payload); err != nil {
		return storeError("insert walk outbox", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return storeError("commit update walk", err)
	}
	observability.RecordWalkUpdated(updatedAt)
	return nil
}

// Delete removes one of userID's walks and queues walk.deleted in the same
// transaction. A missing walk, or one owned by another user, returns
// domain.ErrWalkNotFound.
func (r *WalkRepository) Delete(ctx context.Context, id, userID string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storeError("begin delete walk", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const deleteWalk = `DELETE FROM walks WHERE id = $1 AND user_id = $2
        RETURNING source, COALESCE(external_id, ''), NOW()`

	var source, externalID string
	var deletedAt time.Time
	err = tx.QueryRow(ctx, deleteWalk, id, userID).Scan(&source, &externalID, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrWalkNotFound
		}
		return storeError("delete walk", err)
	}

	payload := events.WalkDeleted{
		WalkID:     id,
		UserID:     userID,
		Source:     source,
		ExternalID: externalID,
		OccurredAt: deletedAt.UTC(),
	}
	if err = r.insertOutbox(ctx, tx, id, userID, events.WalkDeletedType, id+":"+events.WalkDeletedType, payload); err != nil {
		return storeError("insert walk outbox", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return storeError("commit delete walk", err)
	}
	return nil
}

// FindByOwnerAndExternalID returns the walk imported for externalID, or nil.
func (r *WalkRepository) FindByOwnerAndExternalID(ctx context.Context, userID, externalID string) (*domain.Walk, error) {
	const query = `SELECT id::text, user_id::text, miles, COALESCE(notes, ''), source, external_id, walked_at, created_at, updated_at
        FROM walks WHERE user_id = $1 AND external_id = $2`

	var walk domain.Walk
	err := r.pool.QueryRow(ctx, query, userID, externalID).Scan(
		&walk.ID, &walk.UserID, &walk.Miles, &walk.Notes, &walk.Source, &walk.ExternalID, &walk.WalkedAt, &walk.CreatedAt, &walk.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError("find walk", err)
	}
	return &walk, nil
}

func (r *WalkRepository) insertOutbox(ctx context.Context, tx pgx.Tx, walkID, userID, eventType, dedupeKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, user_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	// Keyed by user so a user's events stay ordered within a partition.
	_, err = tx.Exec(ctx, stmt,
		"walk",
		walkID,
		userID,
		eventType,
		r.topic,
		events.SchemaSubject(r.topic),
		userID,
		body,
		dedupeKey,
	)
	return err
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// ListByUser returns a page of the user's walks ordered by walked_at descending.
func (r *WalkRepository) ListByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Walk, *domain.Cursor, error) {
	args := []interface{}{userID, limit}
	query := `SELECT id::text, user_id::text, miles, COALESCE(notes, ''), source, external_id, walked_at, created_at, updated_at
        FROM walks WHERE user_id = $1`

	if cursor != nil {
		query += ` AND (walked_at, id) < ($3, $4::uuid)`
		args = append(args, cursor.WalkedAt, cursor.ID)
	}

	query += ` ORDER BY walked_at DESC, id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, storeError("list walks", err)
	}
	defer rows.Close()

	results := make([]domain.Walk, 0, limit)
	for rows.Next() {
		var walk domain.Walk
		if err := rows.Scan(&walk.ID, &walk.UserID, &walk.Miles, &walk.Notes, &walk.Source, &walk.ExternalID, &walk.WalkedAt, &walk.CreatedAt, &walk.UpdatedAt); err != nil {
			return nil, nil, storeError("scan walk", err)
		}
		results = append(results, walk)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, storeError("list walks", err)
	}

	var next *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{WalkedAt: last.WalkedAt, ID: last.ID}
	}
	return results, next, nil
}
