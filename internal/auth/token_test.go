package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "walklog-test"}

func TestParseValidToken(t *testing.T) {
	token, err := Issue(testConfig, "user-1", []string{ScopeWalksRead, ScopeStravaConnect}, time.Minute)
	require.NoError(t, err)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.HasScope(ScopeWalksRead))
	require.True(t, claims.HasScope(ScopeStravaConnect))
	require.False(t, claims.HasScope("admin"))
	require.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestParseSpaceSeparatedScopes(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    "user-2",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Minute).Unix(),
		"scopes": "walks:read  strava:connect",
	}).SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Len(t, claims.Scopes, 2)
}

func TestParseRejects(t *testing.T) {
	expired, err := Issue(testConfig, "user-1", nil, -time.Minute)
	require.NoError(t, err)
	wrongIssuer, err := Issue(Config{Secret: testConfig.Secret, Issuer: "other"}, "user-1", nil, time.Minute)
	require.NoError(t, err)
	wrongSecret, err := Issue(Config{Secret: "nope", Issuer: testConfig.Issuer}, "user-1", nil, time.Minute)
	require.NoError(t, err)
	noSubject, err := Issue(testConfig, "", nil, time.Minute)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"iss": testConfig.Issuer,
	}).SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)

	cases := map[string]string{
		"expired":      expired,
		"wrong issuer": wrongIssuer,
		"wrong secret": wrongSecret,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
		"garbage":      "not-a-jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(token, testConfig)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = Parse("   ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)
}
