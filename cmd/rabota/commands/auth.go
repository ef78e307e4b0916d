package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/rabota-client/internal/app"
)

// authCommand returns the 'auth' subcommand for managing the API session.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Rabota.ru authentication",
		Commands: []*cli.Command{
			authURLCommand(),
			authLoginCommand(),
			authRefreshCommand(),
			authStatusCommand(),
			authLogoutCommand(),
		},
	}
}

func authorizationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "redirect",
			Usage: "redirect URL registered for the application (defaults to auth.redirect_url)",
		},
		&cli.StringFlag{
			Name:  "display",
			Usage: "authorization page display mode (page|popup)",
		},
		&cli.StringSliceFlag{
			Name:  "scope",
			Usage: "requested scope, repeatable (profile|vacancies|resume)",
		},
	}
}

// authURLCommand returns the 'auth url' subcommand.
func authURLCommand() *cli.Command {
	return &cli.Command{
		Name:   "url",
		Usage:  "Print the authorization URL",
		Flags:  authorizationFlags(),
		Action: authURLAction,
	}
}

// authLoginCommand returns the 'auth login' subcommand.
func authLoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Login to Rabota.ru and save the access token",
		Flags: append(authorizationFlags(),
			&cli.StringFlag{
				Name:  "code",
				Usage: "authorization code to exchange",
			},
			&cli.BoolFlag{
				Name:  "listen",
				Usage: "receive the code on a local callback server (auth.callback_addr)",
			},
		),
		Action: authLoginAction,
	}
}

// authRefreshCommand returns the 'auth refresh' subcommand.
func authRefreshCommand() *cli.Command {
	return &cli.Command{
		Name:   "refresh",
		Usage:  "Trade the saved token for a fresh one",
		Action: authRefreshAction,
	}
}

// authStatusCommand returns the 'auth status' subcommand.
func authStatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show the saved session",
		Action: authStatusAction,
	}
}

// authLogoutCommand returns the 'auth logout' subcommand.
func authLogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Logout from Rabota.ru and clear the saved token",
		Action: authLogoutAction,
	}
}

func authURLAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	redirect := firstNonEmpty(cmd.String("redirect"), s.cfg.Auth.RedirectURL)
	if redirect == "" {
		return errors.New("redirect URL required (--redirect or auth.redirect_url)")
	}

	s.printf("%s\n", authorizationURL(s, cmd, redirect))
	return nil
}

// authLoginAction implements the authorization code flow.
func authLoginAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	if s.cfg.Auth.Storage == app.TokenStorageTypeEnv {
		return errors.New("cannot login with env storage (read-only). Configure file or keyring storage")
	}

	code := strings.TrimSpace(cmd.String("code"))
	switch {
	case code != "":
	case cmd.Bool("listen"):
		code, err = receiveCode(ctx, s, cmd)
	default:
		code, err = promptCode(ctx, s, cmd)
	}
	if err != nil {
		return err
	}
	if code == "" {
		return errors.New("authorization code cannot be empty")
	}

	if _, err := s.client.RequestToken(ctx, code); err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := s.persist(ctx); err != nil {
		return err
	}

	s.printf("\n=== Login Successful ===\n")
	s.printf("Token saved to %s storage\n", s.cfg.Auth.Storage)
	printExpiry(s)

	return nil
}

// receiveCode runs the local callback server until the provider redirects back.
func receiveCode(ctx context.Context, s *session, cmd *cli.Command) (string, error) {
	application, err := app.New(s.cfg.Auth.CallbackPath, slog.Default())
	if err != nil {
		return "", fmt.Errorf("failed to create app: %w", err)
	}

	code, err := application.WaitForCode(ctx, s.cfg.Auth.CallbackAddr, func(redirectURL string) {
		redirect := firstNonEmpty(cmd.String("redirect"), s.cfg.Auth.RedirectURL, redirectURL)
		s.printf("=== Rabota.ru Login ===\n\n")
		s.printf("Visit this URL in your browser:\n   %s\n\n", authorizationURL(s, cmd, redirect))
		s.printf("Waiting for the redirect on %s ...\n", redirectURL)
	})
	if err != nil {
		return "", fmt.Errorf("failed to receive authorization code: %w", err)
	}
	return code, nil
}

// promptCode prints the authorization URL and reads the pasted code.
func promptCode(ctx context.Context, s *session, cmd *cli.Command) (string, error) {
	redirect := firstNonEmpty(cmd.String("redirect"), s.cfg.Auth.RedirectURL)
	if redirect == "" {
		return "", errors.New("redirect URL required (--redirect or auth.redirect_url), or use --listen")
	}

	s.printf("=== Rabota.ru Login ===\n\n")
	s.printf("1. Visit this URL in your browser:\n   %s\n\n", authorizationURL(s, cmd, redirect))
	s.printf("2. Authorize the application\n")
	s.printf("3. Paste the code parameter of the redirect URL\n")

	return readSecureInput(ctx, s, "\nEnter authorization code: ")
}

func authRefreshAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	if s.client.Token() == "" {
		return errors.New("not logged in. Run 'rabota auth login' first")
	}

	_, refreshErr := s.client.RefreshToken(ctx)
	if err := s.persist(ctx); err != nil {
		return errors.Join(refreshErr, err)
	}
	if refreshErr != nil {
		return fmt.Errorf("failed to refresh token: %w", refreshErr)
	}

	s.printf("Token refreshed\n")
	printExpiry(s)
	return nil
}

func authStatusAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	s.printf("Host: %s\n", s.client.Host())
	if s.client.Token() == "" {
		s.printf("Not logged in\n")
		return nil
	}

	s.printf("Logged in (%s storage)\n", s.cfg.Auth.Storage)
	printExpiry(s)
	return nil
}

// authLogoutAction ends the remote session and clears the saved token even
// when the API call fails.
func authLogoutAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	if s.cfg.Auth.Storage == app.TokenStorageTypeEnv {
		return errors.New("cannot logout with env storage (read-only). Configure file or keyring storage")
	}

	var logoutErr error
	if s.client.Token() != "" {
		logoutErr = s.client.Logout(ctx)
	}

	if err := s.persist(ctx); err != nil {
		return errors.Join(logoutErr, err)
	}

	s.printf("\n=== Logout Successful ===\n")
	s.printf("Credentials cleared from %s storage\n", s.cfg.Auth.Storage)

	if logoutErr != nil {
		return fmt.Errorf("remote logout failed: %w", logoutErr)
	}
	return nil
}

func authorizationURL(s *session, cmd *cli.Command, redirect string) string {
	display := firstNonEmpty(cmd.String("display"), s.cfg.Auth.Display)
	scopes := cmd.StringSlice("scope")
	if len(scopes) == 0 {
		scopes = s.cfg.Auth.Scopes
	}
	return s.client.AuthenticationURL(redirect, display, scopes)
}

func printExpiry(s *session) {
	expiresAt := s.client.ExpiresAt()
	switch {
	case expiresAt.IsZero():
		s.printf("Expiry unknown\n")
	case s.client.IsExpired():
		s.printf("Expired at %s\n", expiresAt.Format(time.RFC3339))
	default:
		s.printf("Expires at %s (in %s)\n", expiresAt.Format(time.RFC3339), time.Until(expiresAt).Round(time.Second))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
func readSecureInput(ctx context.Context, s *session, prompt string) (string, error) {
	s.printf("%s", prompt)
	defer s.printf("\n")

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: strings.TrimSpace(string(inputBytes)), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}
