package memos_mcp

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yuzhi-jiang/memos-mcp/pkg/memos"
)

// Protocol error kinds. Every failed tool call reports exactly one of these.
const (
	kindValidationError   = "validation_error"
	kindNotFound          = "not_found"
	kindAuthError         = "auth_error"
	kindRemoteUnavailable = "remote_unavailable"
	kindMalformedResponse = "malformed_response"
)

// toolError is the structured payload a failed tool call carries back to the
// protocol layer.
type toolError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// mapToolError classifies an error into its protocol kind. Anything outside
// the client's taxonomy counts as the remote being unavailable.
func mapToolError(err error) toolError {
	if err == nil {
		return toolError{Kind: kindRemoteUnavailable, Message: "unknown error"}
	}

	var validationErr *memos.ValidationError
	if errors.As(err, &validationErr) {
		return toolError{Kind: kindValidationError, Message: err.Error()}
	}

	var notFoundErr *memos.NotFoundError
	if errors.As(err, &notFoundErr) {
		return toolError{Kind: kindNotFound, Message: err.Error()}
	}

	var authErr *memos.AuthError
	if errors.As(err, &authErr) {
		return toolError{Kind: kindAuthError, Message: err.Error()}
	}

	var malformedErr *memos.MalformedResponseError
	if errors.As(err, &malformedErr) {
		return toolError{Kind: kindMalformedResponse, Message: err.Error()}
	}

	return toolError{Kind: kindRemoteUnavailable, Message: err.Error()}
}

// errorResult shapes an error as a failed tool result so the session stays
// up; the error never propagates as a transport failure.
func errorResult(err error) *mcp.CallToolResult {
	payload, _ := json.MarshalIndent(mapToolError(err), "", "  ")

	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.NewTextContent(string(payload)),
		},
	}
}
