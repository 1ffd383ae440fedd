package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryCredentials struct {
	byUser  map[string]*Credential
	upserts int
}

func newMemoryCredentials() *memoryCredentials {
	return &memoryCredentials{byUser: make(map[string]*Credential)}
}

func (m *memoryCredentials) Get(_ context.Context, userID string) (*Credential, error) {
	return m.byUser[userID], nil
}

func (m *memoryCredentials) GetByAthlete(_ context.Context, athleteID int64) (*Credential, error) {
	for _, cred := range m.byUser {
		if cred.AthleteID == athleteID {
			return cred, nil
		}
	}
	return nil, nil
}

func (m *memoryCredentials) Upsert(_ context.Context, userID string, fields CredentialFields) (*Credential, error) {
	m.upserts++
	now := time.Now().UTC()
	cred, ok := m.byUser[userID]
	if !ok {
		cred = &Credential{UserID: userID, ConnectedAt: now}
		m.byUser[userID] = cred
	}
	cred.AthleteID = fields.AthleteID
	cred.AccessToken = fields.AccessToken
	cred.RefreshToken = fields.RefreshToken
	cred.ExpiresAt = fields.ExpiresAt
	cred.ReauthRequiredAt = nil
	return cred, nil
}

func (m *memoryCredentials) UpdateTokens(context.Context, string, Tokens) error { return nil }

func (m *memoryCredentials) MarkReauthRequired(_ context.Context, userID string) error {
	now := time.Now()
	m.byUser[userID].ReauthRequiredAt = &now
	return nil
}

func (m *memoryCredentials) Delete(_ context.Context, userID string) error {
	delete(m.byUser, userID)
	return nil
}

type stubAuthorizer struct {
	fields CredentialFields
	err    error
	codes  []string
}

func (a *stubAuthorizer) AuthCodeURL(state string) string {
	return "https://www.strava.com/oauth/authorize?state=" + state
}

func (a *stubAuthorizer) Exchange(_ context.Context, code string) (CredentialFields, error) {
	a.codes = append(a.codes, code)
	return a.fields, a.err
}

type stubStates struct {
	issued map[string]string
}

func (s *stubStates) Issue(_ context.Context, userID string) (string, error) {
	state := "state-" + userID
	s.issued[state] = userID
	return state, nil
}

func (s *stubStates) Redeem(_ context.Context, state string) (string, error) {
	userID, ok := s.issued[state]
	if !ok {
		return "", errors.New("unknown state")
	}
	delete(s.issued, state)
	return userID, nil
}

func newTestService() (*ConnectionService, *memoryCredentials, *stubAuthorizer) {
	store := newMemoryCredentials()
	authorizer := &stubAuthorizer{fields: CredentialFields{
		AthleteID: 42,
		Tokens:    Tokens{AccessToken: "access", RefreshToken: "refresh", ExpiresAt: time.Now().Add(6 * time.Hour)},
	}}
	svc := NewConnectionService(store, authorizer, &stubStates{issued: make(map[string]string)})
	return svc, store, authorizer
}

func TestConnectFlow(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	url, err := svc.AuthorizationURL(ctx, "user-1")
	require.NoError(t, err)
	require.Contains(t, url, "state=state-user-1")

	cred, err := svc.CompleteAuthorization(ctx, "code-1", "state-user-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", cred.UserID)
	require.Equal(t, int64(42), cred.AthleteID)
	require.Equal(t, 1, store.upserts)

	status, err := svc.Status(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, status.Connected)
	require.Equal(t, int64(42), status.AthleteID)
	require.False(t, status.ReauthRequired)

	// The state is single use.
	_, err = svc.CompleteAuthorization(ctx, "code-1", "state-user-1")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestReconnectPreservesConnectedAt(t *testing.T) {
	ctx := context.Background()
	svc, store, authorizer := newTestService()

	_, err := svc.AuthorizationURL(ctx, "user-1")
	require.NoError(t, err)
	first, err := svc.CompleteAuthorization(ctx, "code-1", "state-user-1")
	require.NoError(t, err)
	connectedAt := first.ConnectedAt
	require.NoError(t, store.MarkReauthRequired(ctx, "user-1"))

	authorizer.fields.AccessToken = "access-2"
	_, err = svc.AuthorizationURL(ctx, "user-1")
	require.NoError(t, err)
	second, err := svc.CompleteAuthorization(ctx, "code-2", "state-user-1")
	require.NoError(t, err)

	require.Equal(t, connectedAt, second.ConnectedAt)
	require.Equal(t, "access-2", second.AccessToken)
	require.Nil(t, second.ReauthRequiredAt)
}

func TestCompleteAuthorizationWritesNothingOnFailure(t *testing.T) {
	ctx := context.Background()

	cases := map[string]func(*stubAuthorizer){
		"exchange rejected": func(a *stubAuthorizer) { a.err = errors.New("bad code") },
		"no athlete":        func(a *stubAuthorizer) { a.fields.AthleteID = 0 },
		"no access token":   func(a *stubAuthorizer) { a.fields.AccessToken = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc, store, authorizer := newTestService()
			mutate(authorizer)

			_, err := svc.AuthorizationURL(ctx, "user-1")
			require.NoError(t, err)
			_, err = svc.CompleteAuthorization(ctx, "code", "state-user-1")
			require.Error(t, err)
			require.Zero(t, store.upserts)
		})
	}
}

func TestCompleteAuthorizationRequiresCodeAndState(t *testing.T) {
	svc, _, authorizer := newTestService()

	_, err := svc.CompleteAuthorization(context.Background(), "", "state")
	require.ErrorIs(t, err, ErrAuthorizationDenied)
	_, err = svc.CompleteAuthorization(context.Background(), "code", " ")
	require.ErrorIs(t, err, ErrAuthorizationDenied)
	require.Empty(t, authorizer.codes)
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	require.ErrorIs(t, svc.Disconnect(ctx, "user-1"), ErrNotConnected)

	_, err := svc.AuthorizationURL(ctx, "user-1")
	require.NoError(t, err)
	_, err = svc.CompleteAuthorization(ctx, "code", "state-user-1")
	require.NoError(t, err)

	require.NoError(t, svc.Disconnect(ctx, "user-1"))
	require.Empty(t, store.byUser)

	status, err := svc.Status(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, status.Connected)
}

func TestNotificationIsActivityChange(t *testing.T) {
	cases := []struct {
		objectType, aspect string
		want               bool
	}{
		{ObjectTypeActivity, AspectCreate, true},
		{ObjectTypeActivity, AspectUpdate, true},
		{ObjectTypeActivity, AspectDelete, false},
		{ObjectTypeAthlete, AspectUpdate, false},
		{"", "", false},
	}
	for _, tc := range cases {
		n := Notification{ObjectType: tc.objectType, AspectType: tc.aspect}
		require.Equal(t, tc.want, n.IsActivityChange(), "%s/%s", tc.objectType, tc.aspect)
	}
}

func TestOutcomeTokens(t *testing.T) {
	want := []string{"error", "ignored", "no_connection", "fetch_error", "skipped_type", "skipped_before_connection", "updated", "duplicate", "created"}
	got := make([]string, 0, len(want))
	for _, o := range Outcomes() {
		got = append(got, o.String())
	}
	require.Equal(t, want, got)
	require.Equal(t, "error", Outcome(200).String())
}
