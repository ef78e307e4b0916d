package rabota

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponse_LogValueOmitsCredentials(t *testing.T) {
	t.Parallel()

	resp := newResponse(
		"https://api.rabota.ru/oauth/logout.json?token=T1",
		NewParams("token", "T1"),
		&http.Response{StatusCode: http.StatusOK, Header: http.Header{"Content-Type": {"application/json"}}},
		[]byte(`{"access_token":"T2"}`),
	)

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("done", "response", resp)

	out := buf.String()
	require.Contains(t, out, "response.url=https://api.rabota.ru/oauth/logout.json")
	require.Contains(t, out, "response.status=200")
	require.NotContains(t, out, "T1")
	require.NotContains(t, out, "T2")
}

func TestClassifyError_NilJSON(t *testing.T) {
	t.Parallel()

	resp := newResponse("https://x", Params{}, &http.Response{StatusCode: http.StatusTeapot, Header: http.Header{}}, []byte("nope"))
	apiErr := classifyError(resp)
	require.Equal(t, "418", apiErr.Code)
	require.Equal(t, "unknown error", apiErr.Description)
	require.Same(t, resp, apiErr.Response)
}
