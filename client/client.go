// Package client is the consumer side of the session service: a cookie-jar
// HTTP client for the auth endpoints plus the expiry watchdog that keeps the
// session's token fresh ahead of protected calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/internal/logger"
)

const defaultTimeout = 5 * time.Second

// Client talks to the session service on behalf of one consumer. The signed
// session artifact lives in the cookie jar; the client only tracks the
// embedded token's expiry so the watchdog knows when a refresh is due.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logger.Logger

	mu        sync.RWMutex
	expiredAt time.Time
	active    bool
}

// New creates a session client for the service at baseURL
func New(baseURL string, l logger.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if l == nil {
		l = logger.NewNop()
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
		},
		logger: l,
	}, nil
}

// Login authenticates and establishes the session cookie
func (c *Client) Login(ctx context.Context, username, password string) (core.Profile, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return core.Profile{}, fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return core.Profile{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return core.Profile{}, fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return core.Profile{}, core.ErrUnauthorized
	}

	var identity core.Profile
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return core.Profile{}, fmt.Errorf("decode login response: %w", err)
	}

	// The fresh token's expiry comes from the first refresh-endpoint call
	c.mu.Lock()
	c.active = true
	c.expiredAt = time.Time{}
	c.mu.Unlock()

	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("initial expiry probe failed", "error", err)
	}

	return identity, nil
}

// Refresh invokes the server's refresh-if-stale entry point and records the
// (possibly rotated) token's expiry. A 401 means the session is gone for
// good and only a new login helps.
func (c *Client) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/token", nil)
	if err != nil {
		return fmt.Errorf("build refresh request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode == http.StatusUnauthorized {
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()

		return core.ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: refresh status %d", core.ErrTransport, resp.StatusCode)
	}

	var payload struct {
		ExpiredAt time.Time `json:"expired_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}

	c.mu.Lock()
	c.expiredAt = payload.ExpiredAt
	c.mu.Unlock()

	return nil
}

// Me returns the identity of the authenticated principal
func (c *Client) Me(ctx context.Context) (core.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/me", nil)
	if err != nil {
		return core.Profile{}, fmt.Errorf("build me request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return core.Profile{}, fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return core.Profile{}, core.ErrUnauthorized
	}

	var identity core.Profile
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return core.Profile{}, fmt.Errorf("decode me response: %w", err)
	}

	return identity, nil
}

// Logout terminates the session and drops the local state
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	c.mu.Lock()
	c.active = false
	c.expiredAt = time.Time{}
	c.mu.Unlock()

	return nil
}

// Active reports whether a session is established and when its token goes
// stale. A zero expiry with ok=true means the expiry is not known yet.
func (c *Client) Active() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.expiredAt, c.active
}
