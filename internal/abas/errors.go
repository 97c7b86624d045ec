package abas

import (
	"errors"
	"fmt"
)

// ErrProjectNotFound indicates the project lookup returned no record.
var ErrProjectNotFound = errors.New("project not found")

// CodeAuth is the envelope code of authentication failures.
const CodeAuth = "AUTH"

// codeInvalidResponse marks responses that do not match the expected result shape.
const codeInvalidResponse = "INVALID_RESPONSE"

// ConnectionError reports that the endpoint could not be reached or timed out.
type ConnectionError struct {
	Endpoint string
	Payload  Request
	Timeout  bool
	Err      error
}

func (e *ConnectionError) Error() string {
	kind := "network error"
	if e.Timeout {
		kind = "timeout"
	}
	return fmt.Sprintf("abas %s %s: %s: %v", e.Payload.Action, e.Endpoint, kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response.
type HTTPError struct {
	Endpoint   string
	Payload    Request
	StatusCode int
	Body       string // first bytes of the response body
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("abas %s %s: HTTP %d: %s", e.Payload.Action, e.Endpoint, e.StatusCode, e.Body)
}

// APIError reports a response with success false, or one that could not be decoded.
type APIError struct {
	Endpoint string
	Payload  Request
	Code     string
	Message  string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("abas %s: %s", e.Payload.Action, e.Message)
	}
	return fmt.Sprintf("abas %s: %s (%s)", e.Payload.Action, e.Message, e.Code)
}

// AuthError is an APIError with code AUTH.
type AuthError struct {
	*APIError
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.APIError.Error()
}

func (e *AuthError) Unwrap() error { return e.APIError }

func invalidResponse(endpoint string, req Request, format string, args ...any) error {
	return &APIError{
		Endpoint: endpoint,
		Payload:  req,
		Code:     codeInvalidResponse,
		Message:  fmt.Sprintf(format, args...),
	}
}
