package rabota

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for API calls.
// This is useful for testing with httptest servers or injecting
// custom transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithHost points the client at a custom API host.
func WithHost(host string) Option {
	return func(c *Client) {
		c.host = host
	}
}

// WithSandbox points the client at the sandbox host.
func WithSandbox() Option {
	return WithHost(SandboxHost)
}

// WithToken restores a previously issued token. A zero expiresAt means the
// expiry is unknown and the token is treated as valid until the API rejects it.
func WithToken(token string, expiresAt time.Time) Option {
	return func(c *Client) {
		c.token = token
		c.expiresAt = expiresAt
		if token == "" {
			c.expiresAt = time.Time{}
		}
	}
}

// WithEndpoints overrides endpoint paths and field names.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		c.endpoints = e
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithDebug records request headers on every Response.
func WithDebug() Option {
	return func(c *Client) {
		c.debug = true
	}
}
