package domain

import (
	"context"
	"time"
)

// Credential is the stored Strava grant for one local user.
type Credential struct {
	ID               string
	UserID           string
	AthleteID        int64
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	ConnectedAt      time.Time
	ReauthRequiredAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Tokens is the rotating part of a credential.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// CredentialFields carries the values written by an authorization exchange.
type CredentialFields struct {
	AthleteID int64
	Tokens
}

// CredentialStore persists one Credential per local user. Lookups return
// (nil, nil) when no row exists.
type CredentialStore interface {
	Get(ctx context.Context, userID string) (*Credential, error)
	GetByAthlete(ctx context.Context, athleteID int64) (*Credential, error)
	Upsert(ctx context.Context, userID string, fields CredentialFields) (*Credential, error)
	UpdateTokens(ctx context.Context, userID string, tokens Tokens) error
	MarkReauthRequired(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string) error
}
