package memos

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// ValidationError reports malformed or missing caller input. It is always
// raised before any request is sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports that the service has no note or resource for the
// requested identifier.
type NotFoundError struct {
	StatusCode int
	Message    string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// AuthError reports that the service rejected the configured credential.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

// UnavailableError reports a transport failure or a non-2xx status not
// otherwise classified. The original status and remote message are kept for
// diagnostics.
type UnavailableError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UnavailableError) Error() string {
	return e.Message
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports a response body that could not be decoded
// into the expected shape.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from memos API: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func newValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// classifyStatus maps a non-2xx response to the error taxonomy.
func classifyStatus(statusCode int, body []byte, endpoint string) error {
	msg := remoteMessage(body)
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("credential rejected by %s: %s", endpoint, msg),
		}
	case http.StatusNotFound:
		return &NotFoundError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("%s not found: %s", endpoint, msg),
		}
	default:
		return &UnavailableError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("%s returned status %d: %s", endpoint, statusCode, msg),
		}
	}
}

// remoteMessage pulls the "message" field the API wraps errors in, falling
// back to the raw body.
func remoteMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var remoteErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &remoteErr); err == nil && remoteErr.Message != "" {
		return remoteErr.Message
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		// Cut on a rune boundary so the truncated message stays valid UTF-8.
		cut := 200
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}
