package rabota

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Response is the outcome of a single API call.
type Response struct {
	// URL is the effective request URL, including the query string for GET.
	URL string

	// Parameters are the parameters that were sent, including time and
	// signature for signed requests.
	Parameters Params

	StatusCode  int
	ContentType string
	Header      http.Header

	// RequestHeader is only populated when the client was created WithDebug.
	RequestHeader http.Header

	// Body is the raw response body.
	Body []byte

	// JSON is the body decoded as a JSON object. It is nil when the body is
	// not a JSON object.
	JSON map[string]any
}

func newResponse(url string, params Params, resp *http.Response, body []byte) *Response {
	r := &Response{
		URL:         url,
		Parameters:  params,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header,
		Body:        body,
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err == nil {
		r.JSON = obj
	}

	return r
}

// Decode unmarshals the raw body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// LogValue implements slog.LogValuer. The query string, body and parameters
// are omitted because they may carry credentials.
func (r *Response) LogValue() slog.Value {
	url, _, _ := strings.Cut(r.URL, "?")
	return slog.GroupValue(
		slog.String("url", url),
		slog.Int("status", r.StatusCode),
		slog.String("content_type", r.ContentType),
		slog.Int("body_bytes", len(r.Body)),
	)
}
