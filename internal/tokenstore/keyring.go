package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// Keyring stores the token in the OS credential store under service/user.
type Keyring struct {
	service string
	user    string
}

var _ Store = (*Keyring)(nil)

// NewKeyring creates a keyring-backed store.
func NewKeyring(service, user string) (*Keyring, error) {
	if service == "" || user == "" {
		return nil, errors.New("tokenstore: keyring service and user cannot be empty")
	}
	return &Keyring{service: service, user: user}, nil
}

// Read loads the token. A missing entry yields a nil token.
func (k *Keyring) Read(ctx context.Context) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	secret, err := keyring.Get(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading keyring: %w", err)
	}
	if secret == "" {
		return nil, nil
	}

	return decodeToken([]byte(secret))
}

// Write saves the token. A nil token deletes the entry.
func (k *Keyring) Write(ctx context.Context, token *oauth2.Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if token == nil || token.AccessToken == "" {
		if err := keyring.Delete(k.service, k.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("deleting keyring entry: %w", err)
		}
		return nil
	}

	data, err := encodeToken(token)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if err := keyring.Set(k.service, k.user, string(data)); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}
