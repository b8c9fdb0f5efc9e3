package memos_mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yuzhi-jiang/memos-mcp/pkg/memos"
)

type CreateMemoRequest struct {
	Content    string  `json:"content" mcp:"Memo content in Markdown"`
	Visibility string  `json:"visibility,omitempty" mcp:"Memo visibility (defaults to the configured default)"`
	Tags       tagList `json:"tags,omitempty" mcp:"Tags to attach, without the leading '#'"`
}

type UpdateMemoRequest struct {
	MemoID     string `json:"memo_id" mcp:"Memo id of the memo to update"`
	Content    string `json:"content,omitempty" mcp:"New memo content in Markdown"`
	Visibility string `json:"visibility,omitempty" mcp:"New memo visibility"`
}

// tagList accepts the shapes clients actually send for a string array: a
// JSON array, a JSON-encoded array inside a string, or a comma-separated
// string.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	var direct []string
	if err := json.Unmarshal(data, &direct); err == nil {
		*t = direct
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("tags must be an array of strings")
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		*t = nil
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var nested []string
		if err := json.Unmarshal([]byte(raw), &nested); err != nil {
			return fmt.Errorf("tags must be an array of strings")
		}
		*t = nested
		return nil
	}

	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	*t = tags
	return nil
}

// CreateMemo stores a new memo. An omitted visibility falls back to the
// configured default, and the configured default tag is unioned into the tag
// set of every created memo.
func (ms *MemosServer) CreateMemo(ctx context.Context, request mcp.CallToolRequest, params CreateMemoRequest) (*mcp.CallToolResult, error) {
	visibility := params.Visibility
	if visibility == "" {
		visibility = string(ms.config.DefaultVisibility)
	}

	tags := []string(params.Tags)
	if ms.config.DefaultTag != "" {
		tags = append(tags, ms.config.DefaultTag)
	}

	memo, err := ms.client.Create(ctx, params.Content, memos.Visibility(visibility), tags)
	if err != nil {
		return errorResult(err), nil
	}

	return memoResult(memo)
}

// UpdateMemo patches a memo. At least one of content and visibility must be
// given; a no-op update is rejected before any request is sent. Only the
// supplied fields are sent, and concurrent updates to the same memo are not
// coordinated: the service applies them in arrival order and the last write
// wins.
func (ms *MemosServer) UpdateMemo(ctx context.Context, request mcp.CallToolRequest, params UpdateMemoRequest) (*mcp.CallToolResult, error) {
	var patch memos.MemoPatch
	if params.Content != "" {
		patch.Content = &params.Content
	}
	if params.Visibility != "" {
		vis := memos.Visibility(params.Visibility)
		patch.Visibility = &vis
	}

	if patch.Content == nil && patch.Visibility == nil {
		return errorResult(&memos.ValidationError{Message: "update requires content or visibility"}), nil
	}

	memo, err := ms.client.Update(ctx, params.MemoID, patch)
	if err != nil {
		return errorResult(err), nil
	}

	return memoResult(memo)
}
