package dataspace

import (
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// AuthError is returned for 401/403 answers.
type AuthError struct {
	StatusCode int
	StatusText string
}

// Error returns the HTTP status text.
func (e *AuthError) Error() string {
	return e.StatusText
}

// RemoteError is any other failed exchange with the server.
// Message is the server-supplied detail when present, otherwise the status text.
type RemoteError struct {
	StatusCode int
	StatusText string
	Message    string
}

// Error prefers the server detail over the status text.
func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.StatusText
}

// errorBody is the JSON error document returned by the REST layer.
type errorBody struct {
	HTTPErrorCode int    `json:"httpErrorCode"`
	ErrorMessage  string `json:"errorMessage"`
}

// statusText returns the reason phrase of a response ("Forbidden"), falling
// back to the standard text for the code.
func statusText(resp *nethttp.Response) string {
	code := fmt.Sprintf("%d", resp.StatusCode)
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); text != "" {
		return text
	}
	return nethttp.StatusText(resp.StatusCode)
}

// errorFromResponse classifies a non-2xx response and drains its body.
func errorFromResponse(resp *nethttp.Response) error {
	text := statusText(resp)
	if resp.StatusCode == nethttp.StatusUnauthorized || resp.StatusCode == nethttp.StatusForbidden {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &AuthError{StatusCode: resp.StatusCode, StatusText: text}
	}

	remote := &RemoteError{StatusCode: resp.StatusCode, StatusText: text}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		remote.Message = eb.ErrorMessage
	}
	return remote
}

// StatusText returns the HTTP status text carried by err, or err.Error() for
// failures that never reached the server.
func StatusText(err error) string {
	var auth *AuthError
	if errors.As(err, &auth) {
		return auth.StatusText
	}
	var remote *RemoteError
	if errors.As(err, &remote) && remote.StatusText != "" {
		return remote.StatusText
	}
	return err.Error()
}

// Detail returns the message surfaced for listing and upload failures:
// status text for authorization failures, the server detail otherwise.
func Detail(err error) string {
	var auth *AuthError
	if errors.As(err, &auth) {
		return auth.StatusText
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Error()
	}
	return err.Error()
}

// IsAuth reports whether err is an authorization failure.
func IsAuth(err error) bool {
	var auth *AuthError
	return errors.As(err, &auth)
}
