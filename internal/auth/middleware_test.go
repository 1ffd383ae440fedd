package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserID(r.Context())))
	})
}

func TestMiddlewareAcceptsBearerHeader(t *testing.T) {
	token, err := Issue(testConfig, "user-1", []string{ScopeWalksRead}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/walks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	NewMiddleware(testConfig, nil).Wrap(echoUser()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-1", rec.Body.String())
}

func TestMiddlewareRejectsMissingAndMalformed(t *testing.T) {
	mw := NewMiddleware(testConfig, nil)

	rec := httptest.NewRecorder()
	mw.Wrap(echoUser()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/walks", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), `"type":"unauthorized"`)

	req := httptest.NewRequest(http.MethodGet, "/v1/walks", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	mw.Wrap(echoUser()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareQueryTokenOnlyWhenEnabled(t *testing.T) {
	token, err := Issue(testConfig, "user-9", nil, time.Minute)
	require.NoError(t, err)
	target := "/v1/realtime/walks?access_token=" + token

	mw := NewMiddleware(testConfig, nil)
	rec := httptest.NewRecorder()
	mw.Wrap(echoUser()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	mw.AllowQueryToken = true
	rec = httptest.NewRecorder()
	mw.Wrap(echoUser()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-9", rec.Body.String())
}

func TestMiddlewareSkipper(t *testing.T) {
	mw := NewMiddleware(testConfig, func(r *http.Request) bool { return r.URL.Path == "/healthz" })
	rec := httptest.NewRecorder()
	mw.Wrap(echoUser()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireScope(t *testing.T) {
	withScope, err := Issue(testConfig, "user-1", []string{ScopeStravaConnect}, time.Minute)
	require.NoError(t, err)
	withoutScope, err := Issue(testConfig, "user-1", []string{ScopeWalksRead}, time.Minute)
	require.NoError(t, err)

	handler := NewMiddleware(testConfig, nil).Wrap(RequireScope(ScopeStravaConnect)(echoUser()))

	for token, want := range map[string]int{withScope: http.StatusOK, withoutScope: http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/v1/strava/authorize", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, want, rec.Code)
	}
}
