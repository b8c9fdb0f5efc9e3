package memos_mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yuzhi-jiang/memos-mcp/pkg/memos"
)

type SearchMemosRequest struct {
	Query      string `json:"query" mcp:"Keyword to search memo content for"`
	FilterExpr string `json:"filter_expr,omitempty" mcp:"Optional CEL filter expression"`
}

type FilterMemosRequest struct {
	FilterExpr string `json:"filter_expr" mcp:"CEL filter expression"`
}

// SearchMemos finds memos whose content contains the query. The keyword
// predicate is built with escaping; a caller-supplied filter_expr is passed
// through raw and ANDed with it, so both constraints always apply.
func (ms *MemosServer) SearchMemos(ctx context.Context, request mcp.CallToolRequest, params SearchMemosRequest) (*mcp.CallToolResult, error) {
	if strings.TrimSpace(params.Query) == "" {
		return errorResult(&memos.ValidationError{Message: "query is required"}), nil
	}

	found, err := ms.client.Search(ctx, params.Query, memos.RawFilter(params.FilterExpr))
	if err != nil {
		return errorResult(err), nil
	}

	return memoListResult(found)
}

// FilterMemos lists memos matching a caller-supplied filter expression. The
// expression is not interpreted here; the service owns its grammar.
func (ms *MemosServer) FilterMemos(ctx context.Context, request mcp.CallToolRequest, params FilterMemosRequest) (*mcp.CallToolResult, error) {
	if strings.TrimSpace(params.FilterExpr) == "" {
		return errorResult(&memos.ValidationError{Message: "filter_expr is required"}), nil
	}

	found, err := ms.client.Filter(ctx, memos.RawFilter(params.FilterExpr))
	if err != nil {
		return errorResult(err), nil
	}

	return memoListResult(found)
}
