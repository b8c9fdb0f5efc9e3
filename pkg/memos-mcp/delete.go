package memos_mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yuzhi-jiang/memos-mcp/pkg/memos"
)

type DeleteMemoRequest struct {
	MemoID string `json:"memo_id" mcp:"Memo id of the memo to delete"`
}

type DeleteMemoTagRequest struct {
	MemoID string `json:"memo_id" mcp:"Memo id of the memo to edit"`
	Tag    string `json:"tag" mcp:"Tag name to remove, without the leading '#'"`
}

// DeleteMemo removes a memo permanently. Deleting an id the service no
// longer knows reports not_found rather than succeeding silently.
func (ms *MemosServer) DeleteMemo(ctx context.Context, request mcp.CallToolRequest, params DeleteMemoRequest) (*mcp.CallToolResult, error) {
	if err := ms.client.Delete(ctx, params.MemoID); err != nil {
		return errorResult(err), nil
	}

	ack := struct {
		Deleted bool   `json:"deleted"`
		ID      string `json:"id"`
	}{Deleted: true, ID: memos.NormalizeID(params.MemoID)}
	resultJSON, _ := json.MarshalIndent(ack, "", "  ")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(resultJSON)),
		},
	}, nil
}

// DeleteMemoTag removes a hashtag from one memo's content and returns the
// memo as it then stands. Removing a tag the memo does not carry is not an
// error; the memo comes back unchanged.
func (ms *MemosServer) DeleteMemoTag(ctx context.Context, request mcp.CallToolRequest, params DeleteMemoTagRequest) (*mcp.CallToolResult, error) {
	memo, err := ms.client.RemoveTag(ctx, params.MemoID, params.Tag)
	if err != nil {
		return errorResult(err), nil
	}

	return memoResult(memo)
}
