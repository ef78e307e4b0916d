package rabota

import (
	"errors"
	"fmt"
)

// Provider error codes with special handling in the request lifecycle.
const (
	// CodeInvalidToken means the access token has expired server-side.
	// The client refreshes the token and retries the request once.
	CodeInvalidToken = "invalid_token"

	// CodeUndefinedToken means the provider does not know the token.
	// The client drops its session state and returns the error.
	CodeUndefinedToken = "undefined_token"
)

const unknownErrorDescription = "unknown error"

var (
	// ErrTokenExchange is returned when the token endpoint responds with a body
	// that cannot be decoded as a JSON object.
	ErrTokenExchange = errors.New("rabota: failed to obtain token")

	// ErrUnsupportedMethod is returned when a request uses a method other than GET or POST.
	ErrUnsupportedMethod = errors.New("rabota: unsupported request method")
)

// APIError is returned for every non-200 response from the API.
// Code is the provider-assigned error code, or the HTTP status code
// when the body carries no recognizable error.
type APIError struct {
	Code        string
	Description string
	Response    *Response
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Response != nil {
		return fmt.Sprintf("rabota: %s: %s (status %d)", e.Code, e.Description, e.Response.StatusCode)
	}
	return fmt.Sprintf("rabota: %s: %s", e.Code, e.Description)
}

// IsInvalidToken reports whether err is an APIError with code invalid_token.
func IsInvalidToken(err error) bool {
	return hasCode(err, CodeInvalidToken)
}

// IsUndefinedToken reports whether err is an APIError with code undefined_token.
func IsUndefinedToken(err error) bool {
	return hasCode(err, CodeUndefinedToken)
}

func hasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// classifyError builds an APIError from a non-200 response.
// Recognized bodies are {"error", "description"} and {"code", "error"}.
func classifyError(resp *Response) *APIError {
	apiErr := &APIError{
		Code:        fmt.Sprintf("%d", resp.StatusCode),
		Description: unknownErrorDescription,
		Response:    resp,
	}

	code, hasError := resp.JSON["error"]
	desc, hasDesc := resp.JSON["description"]
	if hasError && hasDesc {
		apiErr.Code = stringify(code)
		apiErr.Description = stringify(desc)
		return apiErr
	}

	if altCode, ok := resp.JSON["code"]; ok && hasError {
		apiErr.Code = stringify(altCode)
		apiErr.Description = stringify(code)
	}

	return apiErr
}
