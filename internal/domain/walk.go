package domain

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Walk sources recorded in the shared log.
const (
	SourceManual = "manual"
	SourceStrava = "strava"
)

// Walk is a single entry in the shared activity log.
type Walk struct {
	ID         string
	UserID     string
	Miles      float64
	Notes      string
	Source     string
	ExternalID *string
	WalkedAt   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Bounds for a hand-entered distance, in miles.
const (
	MinManualMiles = 0.01
	MaxManualMiles = 99.99
)

// NewManualWalk validates a hand-entered walk. date is an optional YYYY-MM-DD day:
// empty or today records now, any other day records noon UTC on that day.
// Validation failures match ErrInvalidWalk.
func NewManualWalk(userID string, miles float64, notes, date string, now time.Time) (Walk, error) {
	if miles < MinManualMiles || miles > MaxManualMiles {
		return Walk{}, fmt.Errorf("%w: miles must be between %.2f and %.2f", ErrInvalidWalk, MinManualMiles, MaxManualMiles)
	}
	now = now.UTC()
	walkedAt := now
	if date != "" {
		day, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return Walk{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidWalk)
		}
		if day.Format(time.DateOnly) != now.Format(time.DateOnly) {
			walkedAt = day.Add(12 * time.Hour)
		}
	}
	return Walk{
		UserID:   userID,
		Miles:    math.Round(miles*100) / 100,
		Notes:    strings.TrimSpace(notes),
		Source:   SourceManual,
		WalkedAt: walkedAt,
	}, nil
}

// WalkLog is the write side of the shared activity log used by reconciliation.
// Insert returns ErrDuplicateWalk when the (user_id, external_id) uniqueness
// constraint rejects the row.
type WalkLog interface {
	Insert(ctx context.Context, walk Walk) (string, error)
	UpdateStravaWalk(ctx context.Context, id, notes string, miles float64) error
	FindByOwnerAndExternalID(ctx context.Context, userID, externalID string) (*Walk, error)
}

// BadgeEvaluator awards milestone badges after new distance is logged.
// Implementations own their failure handling.
type BadgeEvaluator interface {
	Evaluate(ctx context.Context, userID string)
}

// Cursor marks a position in a user's walks ordered by walked_at descending.
type Cursor struct {
	WalkedAt time.Time
	ID       string
}

// WalkLister pages through a user's walks, newest first.
type WalkLister interface {
	ListByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Walk, *Cursor, error)
}

// WalkEditor is the owner-facing write side of the log.
// Delete returns ErrWalkNotFound when the walk is missing or owned by someone else.
type WalkEditor interface {
	Insert(ctx context.Context, walk Walk) (string, error)
	Delete(ctx context.Context, id, userID string) error
}
