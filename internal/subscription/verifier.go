// Package subscription answers the Strava push subscription handshake.
package subscription

import (
	"crypto/subtle"
	"errors"
)

// ModeSubscribe is the only handshake mode Strava sends.
const ModeSubscribe = "subscribe"

// ErrForbidden is returned when the handshake does not match the configured token.
var ErrForbidden = errors.New("subscription verification failed")

// Verifier checks handshake requests against a shared verify token.
type Verifier struct {
	token string
}

// NewVerifier constructs a Verifier for token.
func NewVerifier(token string) Verifier {
	return Verifier{token: token}
}

// Verify returns the challenge to echo back, or ErrForbidden.
func (v Verifier) Verify(mode, verifyToken, challenge string) (string, error) {
	if v.token == "" || mode != ModeSubscribe {
		return "", ErrForbidden
	}
	if subtle.ConstantTimeCompare([]byte(verifyToken), []byte(v.token)) != 1 {
		return "", ErrForbidden
	}
	return challenge, nil
}
