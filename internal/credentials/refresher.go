// Package credentials keeps stored Strava grants usable.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"example.com/walklog/internal/domain"
)

// DefaultMargin is how close to expiry a token may get before it is refreshed.
const DefaultMargin = 60 * time.Second

// TokenExchanger swaps a refresh token for a new grant.
type TokenExchanger interface {
	Refresh(ctx context.Context, refreshToken string) (domain.Tokens, error)
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithMargin overrides DefaultMargin.
func WithMargin(margin time.Duration) Option {
	return func(r *Refresher) {
		if margin > 0 {
			r.margin = margin
		}
	}
}

// WithLogger sets the refresher's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Refresher) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) {
		if now != nil {
			r.now = now
		}
	}
}

// Refresher returns valid access tokens, refreshing and persisting them on demand.
type Refresher struct {
	store    domain.CredentialStore
	exchange TokenExchanger
	margin   time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewRefresher constructs a Refresher.
func NewRefresher(store domain.CredentialStore, exchange TokenExchanger, opts ...Option) *Refresher {
	r := &Refresher{
		store:    store,
		exchange: exchange,
		margin:   DefaultMargin,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureValid returns an access token for cred that is valid for longer than the margin.
// A failed refresh yields an error matching domain.ErrCredentialInvalid; only a grant
// Strava actually rejected flags the connection for re-authorization. cred is
// updated in place when new tokens are persisted.
func (r *Refresher) EnsureValid(ctx context.Context, cred *domain.Credential) (string, error) {
	if cred == nil {
		return "", domain.ErrNotConnected
	}
	if cred.ExpiresAt.Sub(r.now()) > r.margin {
		refreshCounter.WithLabelValues(resultReused).Inc()
		return cred.AccessToken, nil
	}

	tokens, err := r.exchange.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		if !errors.Is(err, domain.ErrGrantRevoked) {
			refreshCounter.WithLabelValues(resultUnavailable).Inc()
			return "", fmt.Errorf("%w: %v", domain.ErrCredentialInvalid, err)
		}
		refreshCounter.WithLabelValues(resultRejected).Inc()
		r.flagReauth(ctx, cred.UserID)
		return "", fmt.Errorf("%w: %w", domain.ErrCredentialInvalid, err)
	}
	if tokens.AccessToken == "" {
		refreshCounter.WithLabelValues(resultUnavailable).Inc()
		return "", fmt.Errorf("%w: empty access token", domain.ErrCredentialInvalid)
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = cred.RefreshToken
	}

	if err := r.store.UpdateTokens(ctx, cred.UserID, tokens); err != nil {
		refreshCounter.WithLabelValues(resultStoreError).Inc()
		if errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, domain.ErrNotConnected) {
			return "", err
		}
		return "", fmt.Errorf("%w: persist refreshed tokens: %v", domain.ErrStoreUnavailable, err)
	}
	refreshCounter.WithLabelValues(resultRefreshed).Inc()

	cred.AccessToken = tokens.AccessToken
	cred.RefreshToken = tokens.RefreshToken
	cred.ExpiresAt = tokens.ExpiresAt
	return tokens.AccessToken, nil
}

func (r *Refresher) flagReauth(ctx context.Context, userID string) {
	if err := r.store.MarkReauthRequired(ctx, userID); err != nil {
		r.logger.Warn("mark reauth required failed", zap.String("user_id", userID), zap.Error(err))
	}
}
