// Package strava talks to the Strava OAuth and REST endpoints.
package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"example.com/walklog/internal/domain"
)

// Default public endpoints.
const (
	DefaultAuthURL    = "https://www.strava.com/oauth/authorize"
	DefaultTokenURL   = "https://www.strava.com/oauth/token"
	DefaultAPIBaseURL = "https://www.strava.com/api/v3"

	defaultScope   = "read,activity:read_all"
	defaultTimeout = 5 * time.Second
)

// Config holds application credentials and endpoint overrides.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
	Timeout      time.Duration
}

// Client wraps the Strava endpoints used by the walk log.
type Client struct {
	oauth      *oauth2.Config
	apiBase    string
	httpClient *http.Client
	clientID   string
	secret     string
}

// NewClient constructs a Client, filling in public endpoints where cfg leaves them empty.
func NewClient(cfg Config) *Client {
	authURL := firstNonEmpty(cfg.AuthURL, DefaultAuthURL)
	tokenURL := firstNonEmpty(cfg.TokenURL, DefaultTokenURL)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{defaultScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase:    strings.TrimRight(firstNonEmpty(cfg.APIBaseURL, DefaultAPIBaseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		clientID:   cfg.ClientID,
		secret:     cfg.ClientSecret,
	}
}

// AuthCodeURL returns the consent page URL for the given state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
}

// Exchange trades an authorization code for the athlete's first grant.
func (c *Client) Exchange(ctx context.Context, code string) (domain.CredentialFields, error) {
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return domain.CredentialFields{}, fmt.Errorf("strava code exchange: %w", err)
	}

	athleteID, err := athleteIDFromToken(tok)
	if err != nil {
		return domain.CredentialFields{}, err
	}

	return domain.CredentialFields{
		AthleteID: athleteID,
		Tokens:    tokensFrom(tok, ""),
	}, nil
}

// Refresh exchanges refreshToken for a new access token. Strava may rotate the
// refresh token; when it does not, the previous one is kept.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domain.Tokens, error) {
	if refreshToken == "" {
		return domain.Tokens{}, errors.New("strava refresh: missing refresh token")
	}
	src := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		if grantRejected(err) {
			return domain.Tokens{}, fmt.Errorf("strava refresh: %w: %w", domain.ErrGrantRevoked, err)
		}
		return domain.Tokens{}, fmt.Errorf("strava refresh: %w", err)
	}
	return tokensFrom(tok, refreshToken), nil
}

// grantRejected reports whether the token endpoint refused the refresh token,
// rather than failing for a transient reason.
func grantRejected(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return false
	}
	if re.ErrorCode == "invalid_grant" {
		return true
	}
	if re.Response == nil {
		return false
	}
	return re.Response.StatusCode == http.StatusBadRequest || re.Response.StatusCode == http.StatusUnauthorized
}

// FetchActivity reads the detailed activity with the athlete's access token.
func (c *Client) FetchActivity(ctx context.Context, accessToken string, activityID int64) (*Activity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/activities/%d", c.apiBase, activityID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("strava fetch activity %d: %w", activityID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &RemoteFetchError{Op: "fetch activity", StatusCode: resp.StatusCode}
	}

	var activity Activity
	if err := json.NewDecoder(resp.Body).Decode(&activity); err != nil {
		return nil, fmt.Errorf("decode activity %d: %w", activityID, err)
	}
	return &activity, nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func tokensFrom(tok *oauth2.Token, previousRefresh string) domain.Tokens {
	expiry := tok.Expiry
	if raw, ok := tok.Extra("expires_at").(float64); ok && raw > 0 {
		expiry = time.Unix(int64(raw), 0)
	}
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return domain.Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    expiry.UTC(),
	}
}

func athleteIDFromToken(tok *oauth2.Token) (int64, error) {
	athlete, ok := tok.Extra("athlete").(map[string]interface{})
	if !ok {
		return 0, errors.New("strava token response missing athlete")
	}
	id, ok := athlete["id"].(float64)
	if !ok || id <= 0 {
		return 0, errors.New("strava token response missing athlete id")
	}
	return int64(id), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
