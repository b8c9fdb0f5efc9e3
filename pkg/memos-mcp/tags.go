package memos_mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

type ListMemoTagsRequest struct {
	// No parameters needed
}

// ListMemoTags returns the service's tag catalog.
func (ms *MemosServer) ListMemoTags(ctx context.Context, request mcp.CallToolRequest, params ListMemoTagsRequest) (*mcp.CallToolResult, error) {
	tags, err := ms.client.ListTags(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	resultJSON, _ := json.MarshalIndent(tags, "", "  ")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(resultJSON)),
		},
	}, nil
}
