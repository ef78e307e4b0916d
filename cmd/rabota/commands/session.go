package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/florianilch/rabota-client/internal/app"
	"github.com/florianilch/rabota-client/internal/observability"
	"github.com/florianilch/rabota-client/internal/tokenstore"
	"github.com/florianilch/rabota-client/pkg/rabota"
)

// session bundles what every API command needs: config, logging, the token
// store and a client primed with the stored token.
type session struct {
	cfg    *app.Config
	client *rabota.Client
	store  tokenstore.Store
	out    io.Writer

	saved    *oauth2.Token
	shutdown func(context.Context) error
}

func openSession(ctx context.Context, cmd *cli.Command) (*session, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}

	// Set up observability before creating the client
	shutdown, err := observability.Instrument(ctx, observability.Options{
		Level:        level,
		Format:       cfg.Log.Format,
		OTLPProtocol: cfg.Log.OTLPProtocol,
		OTLPEndpoint: cfg.Log.OTLPEndpoint,
		Writer:       cmd.Root().ErrWriter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	s := &session{cfg: cfg, out: cmd.Root().Writer, shutdown: shutdown}

	s.store, err = cfg.Auth.NewTokenStore()
	if err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	s.client, err = cfg.NewClient(slog.Default())
	if err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	s.saved, err = s.store.Read(ctx)
	if err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	s.client.SetOAuth2Token(s.saved)

	return s, nil
}

// persist writes the client's token back to the store if it changed since
// it was read, e.g. after a refresh or a rejected session.
func (s *session) persist(ctx context.Context) error {
	current := s.client.OAuth2Token()
	if sameToken(current, s.saved) {
		return nil
	}

	if err := s.store.Write(ctx, current); err != nil {
		if errors.Is(err, tokenstore.ErrReadOnly) {
			slog.WarnContext(ctx, "token changed but storage is read-only", "storage", s.cfg.Auth.Storage)
			return nil
		}
		return fmt.Errorf("failed to write token: %w", err)
	}

	s.saved = current
	return nil
}

// close flushes buffered log records.
func (s *session) close(ctx context.Context) {
	if err := s.shutdown(context.WithoutCancel(ctx)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
	}
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func sameToken(a, b *oauth2.Token) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.AccessToken == b.AccessToken && a.Expiry.Equal(b.Expiry)
}
