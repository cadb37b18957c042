package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingAPIKey is returned before any network call when no key is configured.
	ErrMissingAPIKey = errors.New("assistant api key is required")
	// ErrInvalidResponseFormat means the run completed but the latest message is unusable.
	ErrInvalidResponseFormat = errors.New("invalid response format from assistant")
	// ErrResponseTimeout means the poll budget ran out before a terminal status.
	ErrResponseTimeout = errors.New("response timeout")
)

// APIError is returned by Client for any non-2xx response.
//
// Raw holds the response body and never includes the API key.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
	Raw        []byte
}

func (e *APIError) Error() string {
	if e == nil {
		return "assistant api error"
	}
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(string(e.Raw))
	}
	if e.Type != "" {
		return fmt.Sprintf("assistant api request failed: status %d (%s): %s", e.StatusCode, e.Type, msg)
	}
	return fmt.Sprintf("assistant api request failed: status %d: %s", e.StatusCode, msg)
}

type apiErrorBody struct {
	Error *struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Raw: body}

	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		apiErr.Type = parsed.Error.Type
		apiErr.Message = parsed.Error.Message
		var code string
		if json.Unmarshal(parsed.Error.Code, &code) == nil {
			apiErr.Code = code
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// UpstreamKind is the closed set of failure categories of the assistant service.
type UpstreamKind int

const (
	UpstreamUnknown UpstreamKind = iota
	UpstreamAuth
	UpstreamPermission
	UpstreamRateLimit
	UpstreamInvalidRequest
	UpstreamNotFound
	UpstreamUnavailable
	UpstreamTimeout
)

func (k UpstreamKind) String() string {
	switch k {
	case UpstreamAuth:
		return "auth"
	case UpstreamPermission:
		return "permission"
	case UpstreamRateLimit:
		return "rate_limit"
	case UpstreamInvalidRequest:
		return "invalid_request"
	case UpstreamNotFound:
		return "not_found"
	case UpstreamUnavailable:
		return "unavailable"
	case UpstreamTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// UpstreamError is an assistant service failure normalized to an UpstreamKind.
type UpstreamError struct {
	Kind       UpstreamKind
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "upstream error"
	}
	if e.Message != "" {
		return fmt.Sprintf("upstream %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("upstream %s", e.Kind)
}

func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MapUpstreamError classifies err. It is the only place that reads the loose
// upstream error fields; the error type string wins over the status code.
func MapUpstreamError(err error) *UpstreamError {
	if err == nil {
		return nil
	}

	var already *UpstreamError
	if errors.As(err, &already) {
		return already
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{Kind: UpstreamTimeout, Message: "upstream request timed out", Err: err}
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr == nil {
		return &UpstreamError{Kind: UpstreamUnknown, Message: err.Error(), Err: err}
	}

	out := &UpstreamError{StatusCode: apiErr.StatusCode, Message: strings.TrimSpace(apiErr.Message), Err: err}

	switch apiErr.Type {
	case "authentication_error":
		out.Kind = UpstreamAuth
		return out
	case "permission_error":
		out.Kind = UpstreamPermission
		return out
	case "rate_limit_error":
		out.Kind = UpstreamRateLimit
		return out
	case "invalid_request_error":
		if apiErr.StatusCode == 404 {
			out.Kind = UpstreamNotFound
			return out
		}
		out.Kind = UpstreamInvalidRequest
		return out
	}

	status := apiErr.StatusCode
	switch {
	case status == 401:
		out.Kind = UpstreamAuth
	case status == 403:
		out.Kind = UpstreamPermission
	case status == 429:
		out.Kind = UpstreamRateLimit
	case status == 404:
		out.Kind = UpstreamNotFound
	case status >= 500 && status <= 599:
		out.Kind = UpstreamUnavailable
	case status >= 400 && status <= 499:
		out.Kind = UpstreamInvalidRequest
	default:
		out.Kind = UpstreamUnknown
	}
	return out
}

// RunError reports a run that reached a non-success terminal status.
type RunError struct {
	RunID   string
	Status  RunStatus
	Message string
}

func (e *RunError) Error() string {
	if e == nil {
		return "assistant run error"
	}
	switch e.Status {
	case RunFailed:
		msg := e.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return "Assistant run failed: " + msg
	case RunCancelled:
		return "Assistant run was cancelled"
	case RunExpired:
		return "Assistant run expired"
	default:
		return fmt.Sprintf("Assistant run ended with status %s", e.Status)
	}
}
