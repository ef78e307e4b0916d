package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/rabota-client/internal/callback"
)

// ErrCallbackStopped is returned when the callback server exits before a
// code arrives.
var ErrCallbackStopped = errors.New("callback server stopped before receiving a code")

const shutdownTimeout = 5 * time.Second

// App orchestrates the lifecycle of the local callback server used by the
// interactive login.
type App struct {
	callback *callback.Server
	health   *Health
}

// New creates an App serving the provider redirect on path.
func New(path string, logger *slog.Logger) (*App, error) {
	health := NewHealth()

	server, err := callback.New(path, health, callback.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create callback server: %w", err)
	}

	return &App{
		callback: server,
		health:   health,
	}, nil
}

// Health returns the readiness state served on /readyz.
func (a *App) Health() *Health {
	return a.health
}

// WaitForCode starts the callback server on addr, calls onListening with the
// redirect URL once it accepts connections, and blocks until the provider
// redirects back, the server fails, or ctx is done. The server is always
// shut down before returning. An App serves a single login.
func (a *App) WaitForCode(ctx context.Context, addr string, onListening func(redirectURL string)) (string, error) {
	g, gCtx := errgroup.WithContext(ctx)

	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.DebugContext(gCtx, "starting callback server", "addr", addr)
	callbackErrCh, err := a.callback.Start(gCtx, addr)
	if err != nil {
		return "", fmt.Errorf("callback server startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.callback.Shutdown)

	a.health.SetReady(true)
	if onListening != nil {
		onListening(a.callback.RedirectURL())
	}

	var code string

	// Monitor runtime errors and the redirect - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err, ok := <-callbackErrCh:
			if ok && err != nil {
				slog.ErrorContext(gCtx, "callback server runtime error", "error", err)
				return fmt.Errorf("callback server: %w", err)
			}
			return ErrCallbackStopped
		case res := <-a.callback.Results():
			if res.Err != nil {
				return res.Err
			}
			code = res.Code
			return nil
		case <-gCtx.Done():
			return gCtx.Err()
		}
	})

	runtimeErr := g.Wait()
	a.health.SetReady(false)

	slog.DebugContext(ctx, "shutting down callback server")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, runtimeErr)
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}

	return code, nil
}
