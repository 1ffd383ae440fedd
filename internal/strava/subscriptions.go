package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// CreateSubscription registers callbackURL for push events. Strava performs the
// verification handshake against the callback before this call returns.
func (c *Client) CreateSubscription(ctx context.Context, callbackURL, verifyToken string) (int64, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.secret)
	form.Set("callback_url", callbackURL)
	form.Set("verify_token", verifyToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/push_subscriptions", strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var created struct {
		ID int64 `json:"id"`
	}
	if err := c.doJSON(req, "create subscription", &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// ListSubscriptions returns the push subscriptions of this application.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/push_subscriptions?"+c.appCredentials().Encode(), nil)
	if err != nil {
		return nil, err
	}
	var subs []Subscription
	if err := c.doJSON(req, "list subscriptions", &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// DeleteSubscription removes a push subscription.
func (c *Client) DeleteSubscription(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("%s/push_subscriptions/%d?%s", c.apiBase, id, c.appCredentials().Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, "delete subscription", nil)
}

func (c *Client) appCredentials() url.Values {
	v := url.Values{}
	v.Set("client_id", c.clientID)
	v.Set("client_secret", c.secret)
	return v
}

func (c *Client) doJSON(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("strava %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &RemoteFetchError{Op: op, StatusCode: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
