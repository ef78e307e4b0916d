package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// ErrReadOnly is returned by Write on stores that cannot persist tokens.
var ErrReadOnly = errors.New("tokenstore: store is read-only")

// Store reads and writes the current access token.
// Read returns a nil token when nothing is stored. Write with a nil token
// clears the store.
type Store interface {
	Read(ctx context.Context) (*oauth2.Token, error)
	Write(ctx context.Context, token *oauth2.Token) error
}

// storedToken is the persisted form. Only the fields the API issues are kept.
type storedToken struct {
	AccessToken string `json:"access_token"`
	Expiry      string `json:"expiry,omitempty"`
}

func encodeToken(token *oauth2.Token) ([]byte, error) {
	st := storedToken{AccessToken: token.AccessToken}
	if !token.Expiry.IsZero() {
		st.Expiry = token.Expiry.UTC().Format(timeLayout)
	}
	return json.Marshal(st)
}

func decodeToken(data []byte) (*oauth2.Token, error) {
	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding stored token: %w", err)
	}
	if st.AccessToken == "" {
		return nil, nil
	}

	token := &oauth2.Token{AccessToken: st.AccessToken}
	if st.Expiry != "" {
		expiry, err := parseExpiry(st.Expiry)
		if err != nil {
			return nil, err
		}
		token.Expiry = expiry
	}
	return token, nil
}
