package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/walklog/internal/domain"
)

const credentialColumns = `id::text, user_id::text, strava_athlete_id, access_token, refresh_token, token_expires_at, connected_at, reauth_required_at, created_at, updated_at`

// CredentialRepository stores one Strava grant per user in strava_connections.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository constructs a CredentialRepository.
func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// Get returns the credential for userID, or nil.
func (r *CredentialRepository) Get(ctx context.Context, userID string) (*domain.Credential, error) {
	return r.queryOne(ctx, "get credential", `SELECT `+credentialColumns+` FROM strava_connections WHERE user_id = $1`, userID)
}

// GetByAthlete returns the credential linked to a Strava athlete, or nil.
func (r *CredentialRepository) GetByAthlete(ctx context.Context, athleteID int64) (*domain.Credential, error) {
	return r.queryOne(ctx, "get credential by athlete", `SELECT `+credentialColumns+` FROM strava_connections WHERE strava_athlete_id = $1`, athleteID)
}

// Upsert inserts the credential or replaces its grant in place. connected_at is
// only set on insert and a new grant clears any pending reauthorization.
func (r *CredentialRepository) Upsert(ctx context.Context, userID string, fields domain.CredentialFields) (*domain.Credential, error) {
	const stmt = `INSERT INTO strava_connections (user_id, strava_athlete_id, access_token, refresh_token, token_expires_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (user_id) DO UPDATE SET
            strava_athlete_id = EXCLUDED.strava_athlete_id,
            access_token = EXCLUDED.access_token,
            refresh_token = EXCLUDED.refresh_token,
            token_expires_at = EXCLUDED.token_expires_at,
            reauth_required_at = NULL,
            updated_at = NOW()
        RETURNING ` + credentialColumns

	return r.queryOne(ctx, "upsert credential", stmt, userID, fields.AthleteID, fields.AccessToken, fields.RefreshToken, fields.ExpiresAt)
}

// UpdateTokens persists a refreshed grant. A successful refresh proves the grant
// is live, so any pending re-authorization flag is cleared.
func (r *CredentialRepository) UpdateTokens(ctx context.Context, userID string, tokens domain.Tokens) error {
	const stmt = `UPDATE strava_connections
        SET access_token = $2, refresh_token = $3, token_expires_at = $4,
            reauth_required_at = NULL, updated_at = NOW()
        WHERE user_id = $1`

	tag, err := r.pool.Exec(ctx, stmt, userID, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt)
	if err != nil {
		return storeError("update tokens", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotConnected
	}
	return nil
}

// MarkReauthRequired records that the stored grant was rejected by Strava.
func (r *CredentialRepository) MarkReauthRequired(ctx context.Context, userID string) error {
	const stmt = `UPDATE strava_connections
        SET reauth_required_at = COALESCE(reauth_required_at, NOW()), updated_at = NOW()
        WHERE user_id = $1`

	if _, err := r.pool.Exec(ctx, stmt, userID); err != nil {
		return storeError("mark reauth required", err)
	}
	return nil
}

// Delete removes the user's credential. Deleting a missing credential is not an error.
func (r *CredentialRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM strava_connections WHERE user_id = $1`, userID); err != nil {
		return storeError("delete credential", err)
	}
	return nil
}

func (r *CredentialRepository) queryOne(ctx context.Context, op, query string, args ...interface{}) (*domain.Credential, error) {
	var c domain.Credential
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&c.ID, &c.UserID, &c.AthleteID, &c.AccessToken, &c.RefreshToken, &c.ExpiresAt, &c.ConnectedAt, &c.ReauthRequiredAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError(op, err)
	}
	return &c, nil
}
