package domain

import "errors"

var (
	// ErrCredentialInvalid means the stored grant can no longer produce an access token.
	ErrCredentialInvalid = errors.New("strava credential invalid")
	// ErrGrantRevoked means Strava rejected the refresh token itself, as opposed to
	// the token endpoint being unreachable or failing.
	ErrGrantRevoked = errors.New("strava grant revoked")
	// ErrRemoteFetchFailed is matched by remote read failures against the Strava API.
	ErrRemoteFetchFailed = errors.New("strava remote fetch failed")
	// ErrStoreUnavailable wraps failures of the backing data store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDuplicateWalk is returned when the walk log already holds the external activity.
	ErrDuplicateWalk = errors.New("walk already logged for external activity")
	// ErrNotConnected is returned when a user has no stored credential.
	ErrNotConnected = errors.New("strava not connected")
	// ErrWalkNotFound is returned when a walk does not exist or belongs to another user.
	ErrWalkNotFound = errors.New("walk not found")
	// ErrInvalidWalk is returned when a manual entry fails validation.
	ErrInvalidWalk = errors.New("invalid walk")
)
