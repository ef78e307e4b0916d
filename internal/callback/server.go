package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/florianilch/rabota-client/internal/observability/middleware"
)

const (
	// DefaultPath is where the provider redirects after authorization.
	DefaultPath = "/callback"

	maxRequestBytes = 4 << 10
)

// ErrAlreadyStarted is returned by Start when the server is already listening.
var ErrAlreadyStarted = errors.New("callback server already started")

// AuthorizationError is delivered when the provider redirects back with an
// error instead of a code, e.g. because the user denied access.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description == "" {
		return "authorization failed: " + e.Code
	}
	return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
}

// Result is the outcome of one authorization redirect.
type Result struct {
	Code string
	Err  error
}

// Server receives the OAuth redirect on a local address and hands the
// authorization code to whoever is waiting on Results.
type Server struct {
	path    string
	logger  *slog.Logger
	handler http.Handler

	results chan Result
	once    sync.Once

	mu   sync.Mutex
	srv  *http.Server
	addr string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a callback server that serves the redirect on path and
// reports readiness through checker.
func New(path string, checker ReadinessChecker, opts ...Option) (*Server, error) {
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("callback path %q must start with /", path)
	}
	if path == "/healthz" || path == "/readyz" {
		return nil, fmt.Errorf("callback path %q collides with a health endpoint", path)
	}

	s := &Server{
		path:    path,
		logger:  slog.Default(),
		results: make(chan Result, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", livenessHandler())
	mux.HandleFunc("GET /readyz", readinessHandler(checker))
	mux.HandleFunc("GET "+path, s.callbackHandler())

	s.handler = applyMiddlewares(mux,
		Recovery,
		middleware.RedactQuery("code"),
		middleware.Logging(s.logger),
		middleware.RequestID,
		middleware.TraceContext,
		RequestSizeLimit(maxRequestBytes),
	)

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Path returns the redirect path.
func (s *Server) Path() string {
	return s.path
}

// Results delivers the first authorization outcome. Later redirects are
// answered but not delivered.
func (s *Server) Results() <-chan Result {
	return s.results
}

// Start listens on addr and serves in the background. The returned channel
// receives a runtime error, or is closed when the server stops cleanly.
func (s *Server) Start(ctx context.Context, addr string) (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return nil, ErrAlreadyStarted
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.addr = ln.Addr().String()
	s.srv = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func(srv *http.Server) {
		defer close(errCh)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}(s.srv)

	s.logger.InfoContext(ctx, "callback server listening", "addr", s.addr, "path", s.path)

	return errCh, nil
}

// Addr returns the address the server listens on, empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// RedirectURL returns the URL to register as redirect_uri, empty before Start.
func (s *Server) RedirectURL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr + s.path
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("callback server shutdown: %w", err)
	}
	return nil
}

func (s *Server) deliver(res Result) bool {
	delivered := false
	s.once.Do(func() {
		s.results <- res
		delivered = true
	})
	return delivered
}

func (s *Server) callbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := middleware.Query(r)

		if code := q.Get("error"); code != "" {
			authErr := &AuthorizationError{Code: code, Description: q.Get("description")}
			if authErr.Description == "" {
				authErr.Description = q.Get("error_description")
			}
			s.deliver(Result{Err: authErr})
			slog.WarnContext(ctx, "authorization denied", "error", authErr.Code)
			writeJSONError(ctx, w, authErr.Code, authErr.Description, http.StatusBadRequest)
			return
		}

		code := q.Get("code")
		if code == "" {
			writeJSONError(ctx, w, "invalid_request", "missing code parameter", http.StatusBadRequest)
			return
		}

		if !s.deliver(Result{Code: code}) {
			writeJSONError(ctx, w, "invalid_request", "authorization already completed", http.StatusConflict)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if _, err := w.Write([]byte("Authorization complete. You can close this window.\n")); err != nil {
			slog.ErrorContext(ctx, "failed to write response", "error", err)
		}
	}
}
