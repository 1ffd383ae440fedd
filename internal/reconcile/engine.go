// Package reconcile merges Strava activity notifications into the walk log.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"example.com/walklog/internal/domain"
	"example.com/walklog/internal/strava"
)

// MetersPerMile converts Strava distances into logged miles.
const MetersPerMile = 1609.344

const defaultBadgeTimeout = 5 * time.Second

// DefaultActivityTypes are the Strava activity types imported as walks.
var DefaultActivityTypes = []string{"Walk", "Hike"}

// TokenSource yields a usable access token for a stored credential.
type TokenSource interface {
	EnsureValid(ctx context.Context, cred *domain.Credential) (string, error)
}

// ActivityFetcher reads the authoritative activity from Strava.
type ActivityFetcher interface {
	FetchActivity(ctx context.Context, accessToken string, activityID int64) (*strava.Activity, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithBadgeTimeout bounds the badge evaluation call.
func WithBadgeTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.badgeTimeout = d
		}
	}
}

// WithActivityTypes overrides DefaultActivityTypes.
func WithActivityTypes(types ...string) Option {
	return func(e *Engine) {
		if len(types) == 0 {
			return
		}
		e.activityTypes = make(map[string]struct{}, len(types))
		for _, t := range types {
			e.activityTypes[t] = struct{}{}
		}
	}
}

// Engine processes each notification to exactly one terminal Outcome.
// It holds no per-notification state; the walk log's unique index on
// (user_id, external_id) is the only serialization point.
type Engine struct {
	credentials   domain.CredentialStore
	tokens        TokenSource
	fetcher       ActivityFetcher
	walks         domain.WalkLog
	badges        domain.BadgeEvaluator
	logger        *zap.Logger
	badgeTimeout  time.Duration
	activityTypes map[string]struct{}
}

// NewEngine wires the reconciliation collaborators.
func NewEngine(credentials domain.CredentialStore, tokens TokenSource, fetcher ActivityFetcher, walks domain.WalkLog, badges domain.BadgeEvaluator, opts ...Option) *Engine {
	e := &Engine{
		credentials:  credentials,
		tokens:       tokens,
		fetcher:      fetcher,
		walks:        walks,
		badges:       badges,
		logger:       zap.NewNop(),
		badgeTimeout: defaultBadgeTimeout,
	}
	WithActivityTypes(DefaultActivityTypes...)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile handles one notification. A non-nil error is only returned together
// with OutcomeError and always matches domain.ErrStoreUnavailable.
func (e *Engine) Reconcile(ctx context.Context, n domain.Notification) (domain.Outcome, error) {
	start := time.Now()
	outcome, err := e.reconcile(ctx, n)
	observeOutcome(outcome, time.Since(start))
	return outcome, err
}

func (e *Engine) reconcile(ctx context.Context, n domain.Notification) (domain.Outcome, error) {
	if !n.IsActivityChange() {
		return domain.OutcomeIgnored, nil
	}

	logger := e.logger.With(
		zap.Int64("activity_id", n.ObjectID),
		zap.Int64("athlete_id", n.OwnerID),
		zap.String("aspect", n.AspectType),
	)

	cred, err := e.credentials.GetByAthlete(ctx, n.OwnerID)
	if err != nil {
		return domain.OutcomeError, storeErr("lookup credential", err)
	}
	if cred == nil {
		logger.Debug("no connection for athlete")
		return domain.OutcomeNoConnection, nil
	}
	logger = logger.With(zap.String("user_id", cred.UserID))

	token, err := e.tokens.EnsureValid(ctx, cred)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCredentialInvalid):
			logger.Info("credential rejected, treating as disconnected", zap.Error(err))
			return domain.OutcomeNoConnection, nil
		case errors.Is(err, domain.ErrNotConnected):
			logger.Info("connection removed during refresh")
			return domain.OutcomeNoConnection, nil
		}
		return domain.OutcomeError, storeErr("refresh credential", err)
	}

	activity, err := e.fetcher.FetchActivity(ctx, token, n.ObjectID)
	if err != nil {
		logger.Warn("fetch activity failed", zap.Int("status", strava.StatusCode(err)), zap.Error(err))
		return domain.OutcomeFetchError, nil
	}

	if !e.imports(activity) {
		return domain.OutcomeSkippedType, nil
	}

	miles := MetersToMiles(activity.Distance)
	externalID := strconv.FormatInt(activity.ID, 10)

	switch n.AspectType {
	case domain.AspectUpdate:
		existing, err := e.walks.FindByOwnerAndExternalID(ctx, cred.UserID, externalID)
		if err != nil {
			return domain.OutcomeError, storeErr("find walk", err)
		}
		if existing != nil {
			err := e.walks.UpdateStravaWalk(ctx, existing.ID, activity.Name, miles)
			if err == nil {
				return domain.OutcomeUpdated, nil
			}
			if !errors.Is(err, domain.ErrWalkNotFound) {
				return domain.OutcomeError, storeErr("update walk", err)
			}
			logger.Debug("walk deleted before update")
		}
		// The create may have been filtered out earlier, e.g. while the
		// activity was private, so an unmatched update imports it.
		logger.Debug("update without existing walk, inserting")
	case domain.AspectCreate:
		if activity.StartDate.Before(cred.ConnectedAt) {
			return domain.OutcomeSkippedBeforeConnection, nil
		}
	}

	_, err = e.walks.Insert(ctx, domain.Walk{
		UserID:     cred.UserID,
		Miles:      miles,
		Notes:      activity.Name,
		Source:     domain.SourceStrava,
		ExternalID: &externalID,
		WalkedAt:   activity.StartDate,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateWalk) {
			logger.Debug("walk already logged")
			return domain.OutcomeDuplicate, nil
		}
		return domain.OutcomeError, storeErr("insert walk", err)
	}

	e.evaluateBadges(ctx, cred.UserID)
	return domain.OutcomeCreated, nil
}

func (e *Engine) imports(activity *strava.Activity) bool {
	if activity == nil {
		return false
	}
	activityType := activity.Type
	if activityType == "" {
		activityType = activity.SportType
	}
	_, ok := e.activityTypes[activityType]
	return ok
}

// evaluateBadges runs after the insert is committed; it cannot change the outcome.
func (e *Engine) evaluateBadges(ctx context.Context, userID string) {
	if e.badges == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.badgeTimeout)
	defer cancel()
	e.badges.Evaluate(ctx, userID)
}

// MetersToMiles converts meters to miles rounded half-up to two decimals.
func MetersToMiles(meters float64) float64 {
	return math.Round(meters/MetersPerMile*100) / 100
}

func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
}
