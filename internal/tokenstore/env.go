package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const timeLayout = time.RFC3339

// Env reads the token from environment variables. It cannot be written.
type Env struct {
	tokenVar  string
	expiryVar string
	lookup    func(string) (string, bool)
}

var _ Store = (*Env)(nil)

// NewEnv creates a store reading the token from tokenVar and its optional
// expiry (RFC 3339 or unix seconds) from expiryVar. lookup is usually os.LookupEnv.
func NewEnv(tokenVar, expiryVar string, lookup func(string) (string, bool)) (*Env, error) {
	if tokenVar == "" {
		return nil, errors.New("tokenstore: env variable name cannot be empty")
	}
	if lookup == nil {
		return nil, errors.New("tokenstore: env lookup cannot be nil")
	}
	return &Env{tokenVar: tokenVar, expiryVar: expiryVar, lookup: lookup}, nil
}

// Read returns the token from the environment, or nil if the variable is unset.
func (e *Env) Read(ctx context.Context) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, ok := e.lookup(e.tokenVar)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return nil, nil
	}

	token := &oauth2.Token{AccessToken: value}
	if e.expiryVar == "" {
		return token, nil
	}

	if raw, ok := e.lookup(e.expiryVar); ok && strings.TrimSpace(raw) != "" {
		expiry, err := parseExpiry(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.expiryVar, err)
		}
		token.Expiry = expiry
	}
	return token, nil
}

// Write always fails with ErrReadOnly.
func (e *Env) Write(context.Context, *oauth2.Token) error {
	return ErrReadOnly
}

// parseExpiry accepts RFC 3339 timestamps and unix seconds.
func parseExpiry(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid token expiry %q: %w", raw, err)
	}
	return t, nil
}
