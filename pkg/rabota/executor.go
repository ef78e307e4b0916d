package rabota

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/florianilch/rabota-client/pkg/rabota"

// maxAttempts bounds the invalid_token refresh-and-retry cycle: the original
// request plus one retry.
const maxAttempts = 2

func (m Method) valid() bool {
	return m == MethodGet || m == MethodPost
}

// request is a single logical API call.
type request struct {
	path string

	// query holds parameters embedded in the path. They are sent ahead of
	// params, win on conflict and are never signed.
	query Params

	params Params
	method Method

	// token is sent in the token header when not empty.
	token string

	// signed requests get a new signature when the token is substituted.
	signed bool

	// retry enables the invalid_token refresh-and-retry cycle.
	retry bool
}

// execute sends req and turns non-200 responses into *APIError.
// On invalid_token the token is refreshed and the request retried once.
// On undefined_token the session is cleared.
func (c *Client) execute(ctx context.Context, req request) (*Response, error) {
	if !req.method.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, req.method)
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.send(ctx, req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		apiErr := classifyError(resp)

		switch {
		case apiErr.Code == CodeInvalidToken && req.retry && attempt < maxAttempts:
			c.logger.WarnContext(ctx, "token rejected, refreshing and retrying",
				"path", req.path,
				"attempt", attempt,
			)
			if _, err := c.RefreshToken(ctx); err != nil {
				return nil, fmt.Errorf("retrying after %s: %w", apiErr.Code, err)
			}
			req = c.withFreshToken(req)
			continue

		case apiErr.Code == CodeUndefinedToken:
			c.logger.WarnContext(ctx, "token unknown to provider, clearing session", "path", req.path)
			c.clearToken()
		}

		return nil, apiErr
	}
}

// withFreshToken returns a copy of req carrying the client's current token.
func (c *Client) withFreshToken(req request) request {
	token := c.Token()

	params := req.params.Clone()
	params.Set(c.endpoints.FieldAccessToken, token)
	if params.Has(c.endpoints.ParamToken) {
		params.Set(c.endpoints.ParamToken, token)
	}
	if req.signed {
		c.sign(&params)
	}

	req.params = params
	req.token = token
	return req
}

// send performs one HTTP round-trip.
func (c *Client) send(ctx context.Context, req request) (*Response, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "rabota "+req.path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", string(req.method)),
			attribute.String("url.path", req.path),
		),
	)
	defer span.End()

	params := mergeParams(req.query, req.params)
	endpoint := c.baseURL() + req.path
	encoded := params.Encode()

	var body io.Reader
	switch req.method {
	case MethodGet:
		if encoded != "" {
			endpoint += "?" + encoded
		}
	case MethodPost:
		body = strings.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.method), endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if req.method == MethodPost {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if req.token != "" {
		httpReq.Header.Set(c.endpoints.TokenHeader, req.token)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reading response failed")
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := newResponse(endpoint, params, httpResp, raw)
	if c.debug {
		resp.RequestHeader = httpReq.Header.Clone()
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}

	c.logger.DebugContext(ctx, "api request completed",
		"request_id", requestID,
		"method", string(req.method),
		"response", resp,
		"duration", time.Since(start),
	)

	return resp, nil
}
