package rabota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrMissingAppID is returned when the application ID is not provided.
	ErrMissingAppID = errors.New("rabota: missing app ID")

	// ErrMissingSecret is returned when the application secret is not provided.
	ErrMissingSecret = errors.New("rabota: missing app secret")
)

// Client talks to the rabota API on behalf of one application.
// It holds the application credentials and the current access token,
// refreshing the token when it expires. A Client is safe for concurrent use.
type Client struct {
	appID  string
	secret string

	endpoints  Endpoints
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
	debug      bool

	refreshGroup singleflight.Group

	mu        sync.Mutex
	host      string
	token     string
	expiresAt time.Time
}

// New creates a Client for the given application credentials.
// Returns an error if appID or secret is empty.
func New(appID, secret string, opts ...Option) (*Client, error) {
	if appID == "" {
		return nil, ErrMissingAppID
	}
	if secret == "" {
		return nil, ErrMissingSecret
	}

	c := &Client{
		appID:      appID,
		secret:     secret,
		endpoints:  DefaultEndpoints(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		now:        time.Now,
		host:       ProductionHost,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// AppID returns the application ID.
func (c *Client) AppID() string {
	return c.appID
}

// UseSandbox switches the client to the sandbox host, or to host if given.
func (c *Client) UseSandbox(host string) {
	if host == "" {
		host = SandboxHost
	}
	c.mu.Lock()
	c.host = host
	c.mu.Unlock()
}

// UseProduction switches the client back to the production host.
func (c *Client) UseProduction() {
	c.mu.Lock()
	c.host = ProductionHost
	c.mu.Unlock()
}

// Host returns the API host the client currently talks to.
func (c *Client) Host() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host
}

func (c *Client) baseURL() string {
	return strings.TrimRight(c.Host(), "/")
}

// Endpoint describes the authorization and token URLs in oauth2 terms.
func (c *Client) Endpoint() oauth2.Endpoint {
	base := c.baseURL()
	return oauth2.Endpoint{
		AuthURL:   base + c.endpoints.Authorize,
		TokenURL:  base + c.endpoints.Token,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// AuthenticationURL builds the URL of the authorization page. The user is
// sent back to redirect with a code to pass to RequestToken.
// An empty display defaults to DisplayPage and nil scopes to DefaultScopes.
func (c *Client) AuthenticationURL(redirect, display string, scopes []string) string {
	if display == "" {
		display = DisplayPage
	}
	if scopes == nil {
		scopes = DefaultScopes()
	}

	q := url.Values{}
	q.Set(c.endpoints.FieldAppID, c.appID)
	q.Set(c.endpoints.FieldRedirect, redirect)
	q.Set(c.endpoints.FieldDisplay, display)
	q.Set(c.endpoints.FieldScope, strings.Join(scopes, ","))

	return c.baseURL() + c.endpoints.Authorize + "?" + q.Encode()
}

// Token returns the current access token, or "" if there is none.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// ExpiresAt returns the token expiry. The zero time means no token or an
// unknown expiry.
func (c *Client) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

// SetToken replaces the current token. An empty token clears the session.
func (c *Client) SetToken(token string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setTokenLocked(token, expiresAt)
}

func (c *Client) setTokenLocked(token string, expiresAt time.Time) {
	if token == "" {
		expiresAt = time.Time{}
	}
	c.token = token
	c.expiresAt = expiresAt
}

func (c *Client) clearToken() {
	c.SetToken("", time.Time{})
}

// OAuth2Token returns the current token as an oauth2.Token, or nil if the
// client has no token.
func (c *Client) OAuth2Token() *oauth2.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken: c.token,
		Expiry:      c.expiresAt,
	}
}

// SetOAuth2Token restores a token saved from OAuth2Token. Nil clears the session.
func (c *Client) SetOAuth2Token(t *oauth2.Token) {
	if t == nil {
		c.clearToken()
		return
	}
	c.SetToken(t.AccessToken, t.Expiry)
}

// IsExpired reports whether the client needs a new token: it is true when
// there is no token or the known expiry has passed.
func (c *Client) IsExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiredLocked()
}

func (c *Client) expiredLocked() bool {
	if c.token == "" {
		return true
	}
	return !c.expiresAt.IsZero() && c.expiresAt.Before(c.now())
}

// RequestToken exchanges an authorization code for an access token and
// stores it on the client. It returns the decoded token response.
func (c *Client) RequestToken(ctx context.Context, code string) (map[string]any, error) {
	params := NewParams(
		c.endpoints.FieldCode, code,
		c.endpoints.FieldAppID, c.appID,
	)

	resp, err := c.execute(ctx, request{
		path:   c.endpoints.Token,
		params: params,
		method: MethodPost,
	})
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	if resp.JSON == nil {
		return nil, fmt.Errorf("%w: unparsable token response (status %d)", ErrTokenExchange, resp.StatusCode)
	}

	c.applyTokenResponse(ctx, resp.JSON)
	return resp.JSON, nil
}

// RefreshToken trades the current token for a fresh one.
// Concurrent calls on the same client share a single refresh request.
func (c *Client) RefreshToken(ctx context.Context) (map[string]any, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return c.refreshToken(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

func (c *Client) refreshToken(ctx context.Context) (map[string]any, error) {
	params := NewParams(
		c.endpoints.FieldTime, c.timestamp(),
		c.endpoints.ParamToken, c.Token(),
		c.endpoints.FieldAppID, c.appID,
	)
	params.Set(c.endpoints.FieldSignature, Sign(params, c.secret))

	resp, err := c.execute(ctx, request{
		path:   c.endpoints.RefreshToken,
		params: params,
		method: MethodPost,
	})
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	if resp.JSON == nil {
		return nil, fmt.Errorf("%w: unparsable refresh response (status %d)", ErrTokenExchange, resp.StatusCode)
	}

	c.applyTokenResponse(ctx, resp.JSON)
	return resp.JSON, nil
}

// applyTokenResponse stores access_token and expires_in when present.
func (c *Client) applyTokenResponse(ctx context.Context, result map[string]any) {
	raw, ok := result[c.endpoints.FieldAccessToken]
	if !ok {
		return
	}
	token := stringify(raw)

	var expiresAt time.Time
	if ttl, ok := parseSeconds(result[c.endpoints.FieldExpiresIn]); ok {
		expiresAt = c.now().Add(ttl)
	} else {
		c.logger.WarnContext(ctx, "token response without usable expiry", "field", c.endpoints.FieldExpiresIn)
	}

	c.SetToken(token, expiresAt)
	c.logger.DebugContext(ctx, "token updated", "expires_at", expiresAt)
}

// parseSeconds reads a lifetime in seconds from a decoded JSON value.
func parseSeconds(v any) (time.Duration, bool) {
	var secs float64
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		secs = f
	case float64:
		secs = t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		secs = f
	default:
		return 0, false
	}
	if math.IsNaN(secs) || math.Abs(secs) > maxLifetimeSeconds {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// maxLifetimeSeconds is the largest lifetime time.Duration can hold.
const maxLifetimeSeconds = float64(math.MaxInt64 / int64(time.Second))

// Fetch calls an API method. An expired token is refreshed first.
// When sign is true the caller's params are signed with the application
// secret. A query string embedded in path is sent ahead of params and is
// not part of the signature. params is not modified.
func (c *Client) Fetch(ctx context.Context, path string, params Params, method Method, sign bool) (*Response, error) {
	if !method.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	if err := c.refreshIfExpired(ctx, path); err != nil {
		return nil, err
	}

	return c.fetch(ctx, path, params.Clone(), method, sign)
}

// fetch sends params as is after the expiry check has been done.
func (c *Client) fetch(ctx context.Context, path string, params Params, method Method, sign bool) (*Response, error) {
	path, query := splitPathQuery(path)
	if sign {
		c.sign(&params)
	}

	return c.execute(ctx, request{
		path:   path,
		query:  query,
		params: params,
		method: method,
		token:  c.Token(),
		signed: sign,
		retry:  true,
	})
}

// refreshIfExpired refreshes a token whose known expiry has passed.
func (c *Client) refreshIfExpired(ctx context.Context, path string) error {
	c.mu.Lock()
	needsRefresh := c.token != "" && c.expiredLocked()
	c.mu.Unlock()

	if !needsRefresh {
		return nil
	}

	c.logger.DebugContext(ctx, "token expired, refreshing before request", "path", path)
	_, err := c.RefreshToken(ctx)
	return err
}

// Logout ends the session on the provider side and clears the local token.
// An expired token is refreshed first so the provider revokes the session
// that is actually live. The local token is cleared even when a request
// fails; the error is still returned.
func (c *Client) Logout(ctx context.Context) error {
	defer c.clearToken()

	if err := c.refreshIfExpired(ctx, c.endpoints.Logout); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	params := NewParams(c.endpoints.FieldAccessToken, c.Token())
	if _, err := c.fetch(ctx, c.endpoints.Logout, params, MethodGet, false); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// sign sets time and signature on params.
func (c *Client) sign(params *Params) {
	params.Del(c.endpoints.FieldSignature)
	params.Set(c.endpoints.FieldTime, c.timestamp())
	params.Set(c.endpoints.FieldSignature, Sign(*params, c.secret))
}

func (c *Client) timestamp() string {
	return strconv.FormatInt(c.now().Unix(), 10)
}

// splitPathQuery separates a query string embedded in path. A query that
// cannot be parsed is left in the path.
func splitPathQuery(path string) (string, Params) {
	base, rawQuery, found := strings.Cut(path, "?")
	if !found {
		return path, Params{}
	}

	query, err := parseQuery(rawQuery)
	if err != nil {
		return path, Params{}
	}
	return base, query
}
