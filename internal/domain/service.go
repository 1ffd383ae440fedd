// Package domain defines the business types and workflows of the walk log.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidState is returned when an OAuth state parameter fails verification.
	ErrInvalidState = errors.New("invalid authorization state")
	// ErrAuthorizationDenied is returned when the athlete declined the grant.
	ErrAuthorizationDenied = errors.New("authorization denied")
)

// Authorizer drives the Strava side of the authorization code flow.
type Authorizer interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (CredentialFields, error)
}

// StateCodec issues and redeems single-use OAuth state values bound to a user.
type StateCodec interface {
	Issue(ctx context.Context, userID string) (string, error)
	Redeem(ctx context.Context, state string) (string, error)
}

// ConnectionStatus summarises a user's Strava link.
type ConnectionStatus struct {
	Connected      bool
	AthleteID      int64
	ConnectedAt    *time.Time
	ReauthRequired bool
}

// ConnectionService orchestrates the credential lifecycle outside the webhook path.
type ConnectionService struct {
	store      CredentialStore
	authorizer Authorizer
	states     StateCodec
}

// NewConnectionService constructs a ConnectionService.
func NewConnectionService(store CredentialStore, authorizer Authorizer, states StateCodec) *ConnectionService {
	return &ConnectionService{store: store, authorizer: authorizer, states: states}
}

// AuthorizationURL returns the Strava consent URL carrying a fresh state for userID.
func (s *ConnectionService) AuthorizationURL(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}
	state, err := s.states.Issue(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("issue state: %w", err)
	}
	return s.authorizer.AuthCodeURL(state), nil
}

// CompleteAuthorization redeems the state, exchanges the code and stores the credential.
// Nothing is written unless the exchange succeeded.
func (s *ConnectionService) CompleteAuthorization(ctx context.Context, code, state string) (*Credential, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(state) == "" {
		return nil, ErrAuthorizationDenied
	}

	userID, err := s.states.Redeem(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	fields, err := s.authorizer.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if fields.AthleteID == 0 || fields.AccessToken == "" {
		return nil, errors.New("exchange returned incomplete grant")
	}

	return s.store.Upsert(ctx, userID, fields)
}

// Status reports whether userID has a usable Strava connection.
func (s *ConnectionService) Status(ctx context.Context, userID string) (ConnectionStatus, error) {
	cred, err := s.store.Get(ctx, userID)
	if err != nil {
		return ConnectionStatus{}, err
	}
	if cred == nil {
		return ConnectionStatus{}, nil
	}
	connectedAt := cred.ConnectedAt
	return ConnectionStatus{
		Connected:      true,
		AthleteID:      cred.AthleteID,
		ConnectedAt:    &connectedAt,
		ReauthRequired: cred.ReauthRequiredAt != nil,
	}, nil
}

// Disconnect removes the stored credential. Walks already imported are kept.
func (s *ConnectionService) Disconnect(ctx context.Context, userID string) error {
	cred, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if cred == nil {
		return ErrNotConnected
	}
	return s.store.Delete(ctx, userID)
}
