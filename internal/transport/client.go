// Package transport provides the HTTP client used for upstream config
// fetches and GitHub release downloads. Requests carry a bounded timeout and
// optional token authentication; failures map onto the fetch error taxonomy.
package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bolinfest/kata-landlock/pkg/constants"
	"github.com/bolinfest/kata-landlock/pkg/errors"
)

// Client provides HTTP client functionality with optional authentication.
type Client struct {
	http  *http.Client
	auth  Authenticator
	token string
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithAuth sets the authenticator and token applied to every request. An
// empty token leaves requests unauthenticated.
func WithAuth(auth Authenticator, token string) Option {
	return func(c *Client) {
		c.auth = auth
		c.token = token
	}
}

// New creates a new transport client.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: constants.DefaultHTTPTimeout},
		auth: &NoAuth{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request with authentication applied.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewFetchError(url, 0, err)
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	if c.token != "" {
		c.auth.Apply(req, c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.NewFetchError(url, 0, err)
	}
	return resp, nil
}

// GetBody performs a GET request, requires a 2xx status, and returns the
// full response body.
func (c *Client) GetBody(ctx context.Context, url string, header http.Header) ([]byte, error) {
	resp, err := c.Get(ctx, url, header)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Drain any remaining body to allow connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewFetchError(url, resp.StatusCode, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewFetchError(url, 0, err)
	}
	return body, nil
}
