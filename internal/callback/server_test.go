package callback_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/rabota-client/internal/callback"
)

type readiness struct{ ready atomic.Bool }

func (r *readiness) IsReady() bool { return r.ready.Load() }

func newServer(t *testing.T, checker callback.ReadinessChecker) (*callback.Server, *strings.Builder) {
	t.Helper()
	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	s, err := callback.New("/cb", checker, callback.WithLogger(logger))
	require.NoError(t, err)
	return s, &logs
}

func serve(s http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNew_InvalidPath(t *testing.T) {
	t.Parallel()

	_, err := callback.New("cb", nil)
	require.Error(t, err)

	_, err = callback.New("/healthz", nil)
	require.Error(t, err)

	s, err := callback.New("", nil)
	require.NoError(t, err)
	assert.Equal(t, callback.DefaultPath, s.Path())
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	checker := &readiness{}
	s, _ := newServer(t, checker)

	rec := serve(s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	checker.ready.Store(true)
	rec = serve(s, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestServer_Callback(t *testing.T) {
	t.Parallel()

	t.Run("delivers code once", func(t *testing.T) {
		t.Parallel()
		s, logs := newServer(t, nil)

		rec := serve(s, "/cb?code=the-code")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

		select {
		case res := <-s.Results():
			require.NoError(t, res.Err)
			assert.Equal(t, "the-code", res.Code)
		default:
			t.Fatal("no result delivered")
		}

		rec = serve(s, "/cb?code=other")
		assert.Equal(t, http.StatusConflict, rec.Code)

		assert.NotContains(t, logs.String(), "the-code")
		assert.NotContains(t, logs.String(), "code=other")
	})

	t.Run("missing code", func(t *testing.T) {
		t.Parallel()
		s, _ := newServer(t, nil)

		rec := serve(s, "/cb")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "invalid_request", body["error"])

		select {
		case res := <-s.Results():
			t.Fatalf("unexpected result %+v", res)
		default:
		}
	})

	t.Run("provider error", func(t *testing.T) {
		t.Parallel()
		s, _ := newServer(t, nil)

		rec := serve(s, "/cb?error=access_denied&description=user+said+no")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		res := <-s.Results()
		var authErr *callback.AuthorizationError
		require.ErrorAs(t, res.Err, &authErr)
		assert.Equal(t, "access_denied", authErr.Code)
		assert.Equal(t, "user said no", authErr.Description)
	})

	t.Run("wrong method", func(t *testing.T) {
		t.Parallel()
		s, _ := newServer(t, nil)

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cb?code=x", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestServer_Recovery(t *testing.T) {
	t.Parallel()

	h := callback.Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := serve(h, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_RequestSizeLimit(t *testing.T) {
	t.Parallel()

	var readErr error
	h := callback.RequestSizeLimit(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))

	var maxErr *http.MaxBytesError
	require.ErrorAs(t, readErr, &maxErr)
}

func TestServer_StartShutdown(t *testing.T) {
	t.Parallel()

	s, _ := newServer(t, nil)
	assert.Empty(t, s.RedirectURL())

	ctx := context.Background()
	errCh, err := s.Start(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	_, err = s.Start(ctx, "127.0.0.1:0")
	require.ErrorIs(t, err, callback.ErrAlreadyStarted)

	redirect := s.RedirectURL()
	require.True(t, strings.HasPrefix(redirect, "http://127.0.0.1:"))
	require.True(t, strings.HasSuffix(redirect, "/cb"))

	resp, err := http.Get(redirect + "?code=live")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "live", (<-s.Results()).Code)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(shutdownCtx))

	err, ok := <-errCh
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestAuthorizationError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "authorization failed: access_denied", (&callback.AuthorizationError{Code: "access_denied"}).Error())
	assert.Equal(t, "authorization failed: x: y", (&callback.AuthorizationError{Code: "x", Description: "y"}).Error())
	assert.False(t, errors.Is(&callback.AuthorizationError{}, callback.ErrAlreadyStarted))
}
