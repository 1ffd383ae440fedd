package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const stateAudience = "strava-oauth-state"

// DefaultStateTTL bounds how long a user may sit on the Strava consent page.
const DefaultStateTTL = 10 * time.Minute

// ErrInvalidState is returned when a state value fails verification or was already used.
var ErrInvalidState = errors.New("invalid oauth state")

// StateCodec issues signed, single-use OAuth state values bound to a local user.
type StateCodec struct {
	secret []byte
	ttl    time.Duration
	nonces NonceStore
	now    func() time.Time
}

// NewStateCodec constructs a codec signing with secret. A zero ttl uses DefaultStateTTL.
func NewStateCodec(secret string, ttl time.Duration, nonces NonceStore) *StateCodec {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateCodec{secret: []byte(secret), ttl: ttl, nonces: nonces, now: time.Now}
}

// Issue returns a state for userID and records its nonce.
func (c *StateCodec) Issue(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	nonce := uuid.NewString()
	now := c.now()

	if err := c.nonces.Put(ctx, nonce, userID, c.ttl); err != nil {
		return "", err
	}

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Audience:  jwt.ClaimStrings{stateAudience},
		ID:        nonce,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nil
}

// Redeem verifies state, consumes its nonce and returns the bound user id.
func (c *StateCodec) Redeem(ctx context.Context, state string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(state, &claims, keyFunc(string(c.secret)),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithAudience(stateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return "", ErrInvalidState
	}

	owner, err := c.nonces.Take(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrNonceNotFound) {
			return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		return "", err
	}
	if owner != claims.Subject {
		return "", ErrInvalidState
	}
	return claims.Subject, nil
}
