package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/internal/logger"
	"github.com/layer-3/warden/ports"
)

const (
	requestTokenPath = "/auth/requestToken"
	refreshTokenPath = "/auth/refreshToken"
	profilePath      = "/api/a/owner/own"

	defaultTimeout = 5 * time.Second

	// Transport failures and upstream 5xx are retried this many times
	// before giving up. Credential rejections are never retried.
	defaultMaxRetries = 2
)

// Config for the credential service client
type Config struct {
	// BaseURL of the remote credential service, without trailing slash
	BaseURL string

	// ClientID and ClientSecret identify this deployment to the
	// credential service on token grants
	ClientID     string
	ClientSecret string

	// Timeout per outbound call, defaults to 5s
	Timeout time.Duration

	// MaxRetries for transport/5xx failures, defaults to 2
	MaxRetries uint64

	// HTTPClient override, primarily for tests
	HTTPClient *http.Client
}

// Client calls the remote credential service. It holds no mutable state
// beyond the outbound HTTP client.
type Client struct {
	cfg    Config
	client *http.Client
	logger logger.Logger
}

var _ ports.CredentialProvider = (*Client)(nil)

// NewClient creates a credential service client
func NewClient(cfg Config, l logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if l == nil {
		l = logger.NewNop()
	}

	return &Client{
		cfg:    cfg,
		client: httpClient,
		logger: l,
	}
}

// RequestToken exchanges a username/password pair for a token grant.
// Any rejection surfaces as core.ErrInvalidCredentials so the caller can
// collapse it at the boundary.
func (c *Client) RequestToken(ctx context.Context, creds core.Credentials) (core.TokenResponse, error) {
	body := map[string]string{
		"client-id":     c.cfg.ClientID,
		"client-secret": c.cfg.ClientSecret,
		"login":         creds.Username,
		"password":      creds.Password,
	}

	resp, err := c.postToken(ctx, requestTokenPath, body, core.ErrInvalidCredentials)
	if err != nil {
		return core.TokenResponse{}, err
	}

	c.logger.Debug("token granted", "username", creds.Username)
	return resp, nil
}

// RefreshToken exchanges a refresh token for a new grant. The upstream
// refresh token is single-use; a rejection surfaces as core.ErrRefreshFailed.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (core.TokenResponse, error) {
	body := map[string]string{
		"client-id":     c.cfg.ClientID,
		"client-secret": c.cfg.ClientSecret,
		"refresh-token": refreshToken,
	}

	resp, err := c.postToken(ctx, refreshTokenPath, body, core.ErrRefreshFailed)
	if err != nil {
		return core.TokenResponse{}, err
	}

	c.logger.Debug("token refreshed")
	return resp, nil
}

// FetchProfile resolves the identity behind a fresh access token
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (core.Profile, error) {
	operation := func() (core.Profile, error) {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+profilePath, nil)
		if err != nil {
			return core.Profile{}, backoff.Permanent(fmt.Errorf("build profile request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := c.client.Do(req)
		if err != nil {
			return core.Profile{}, fmt.Errorf("%w: %v", core.ErrTransport, err)
		}
		defer resp.Body.Close() // nolint:errcheck

		switch {
		case resp.StatusCode == http.StatusOK:
			var payload struct {
				Data core.Profile `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return core.Profile{}, backoff.Permanent(fmt.Errorf("%w: decode response: %v", core.ErrProfileFetch, err))
			}
			return payload.Data, nil
		case resp.StatusCode >= http.StatusInternalServerError:
			return core.Profile{}, fmt.Errorf("%w: profile status %d", core.ErrTransport, resp.StatusCode)
		default:
			return core.Profile{}, backoff.Permanent(fmt.Errorf("%w: status %d", core.ErrProfileFetch, resp.StatusCode))
		}
	}

	profile, err := backoff.RetryWithData(operation, c.newBackOff(ctx))
	if err != nil {
		c.logger.Warn("profile fetch failed", "error", err)
		return core.Profile{}, err
	}

	return profile, nil
}

// postToken posts a JSON body to a token endpoint and decodes the grant.
// rejectErr is the internal cause assigned to non-5xx rejections.
func (c *Client) postToken(ctx context.Context, path string, body map[string]string, rejectErr error) (core.TokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return core.TokenResponse{}, fmt.Errorf("marshal token request: %w", err)
	}

	operation := func() (core.TokenResponse, error) {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return core.TokenResponse{}, backoff.Permanent(fmt.Errorf("build token request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return core.TokenResponse{}, fmt.Errorf("%w: %v", core.ErrTransport, err)
		}
		defer resp.Body.Close() // nolint:errcheck

		switch {
		case resp.StatusCode == http.StatusOK:
			var grant core.TokenResponse
			if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
				return core.TokenResponse{}, backoff.Permanent(fmt.Errorf("%w: decode response: %v", rejectErr, err))
			}
			return grant, nil
		case resp.StatusCode >= http.StatusInternalServerError:
			return core.TokenResponse{}, fmt.Errorf("%w: token status %d", core.ErrTransport, resp.StatusCode)
		default:
			// Drain so the connection can be reused
			_, _ = io.Copy(io.Discard, resp.Body)
			return core.TokenResponse{}, backoff.Permanent(fmt.Errorf("%w: status %d", rejectErr, resp.StatusCode))
		}
	}

	grant, err := backoff.RetryWithData(operation, c.newBackOff(ctx))
	if err != nil {
		c.logger.Warn("token call failed", "path", path, "error", err)
		return core.TokenResponse{}, err
	}

	return grant, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second

	return backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx)
}
