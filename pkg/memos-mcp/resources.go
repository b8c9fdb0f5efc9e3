package memos_mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yuzhi-jiang/memos-mcp/pkg/memos"
)

// Resource URIs. A single memo is addressed as memoURIPrefix + id.
const (
	recentMemosURI = "memos://recent"
	allMemosURI    = "memos://all"
	memoTagsURI    = "memos://tags"
	memoURIPrefix  = "memos://memos/"
)

// ReadRecentMemos serves memos://recent with the most recent memos.
func (ms *MemosServer) ReadRecentMemos(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list, err := ms.client.ListRecent(ctx, memos.DefaultRecentLimit)
	if err != nil {
		return nil, err
	}
	return memoResources(list), nil
}

// ReadAllMemos serves memos://all with every visible memo.
func (ms *MemosServer) ReadAllMemos(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list, err := ms.client.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return memoResources(list), nil
}

// ReadMemoByID serves memos://memos/{id} with one memo. A missing memo
// surfaces the service's not-found error.
func (ms *MemosServer) ReadMemoByID(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, err := memoIDFromURI(request.Params.URI)
	if err != nil {
		return nil, err
	}

	memo, err := ms.client.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	memoJSON, _ := json.MarshalIndent(memo, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(memoJSON),
		},
	}, nil
}

// ReadMemoTags serves memos://tags with the service's tag catalog.
func (ms *MemosServer) ReadMemoTags(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	tags, err := ms.client.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	tagsJSON, _ := json.MarshalIndent(tags, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      memoTagsURI,
			MIMEType: "application/json",
			Text:     string(tagsJSON),
		},
	}, nil
}

// memoIDFromURI extracts the id from "memos://memos/{id}". Anything that
// does not match that shape is unroutable.
func memoIDFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, memoURIPrefix) {
		return "", &memos.ValidationError{Message: fmt.Sprintf("unroutable resource URI %q", uri)}
	}

	id := strings.TrimPrefix(uri, memoURIPrefix)
	if id == "" || strings.Contains(id, "/") {
		return "", &memos.ValidationError{Message: fmt.Sprintf("unroutable resource URI %q", uri)}
	}
	return id, nil
}

// memoResources renders each memo as its own resource, addressed by id.
func memoResources(list []memos.Memo) []mcp.ResourceContents {
	resources := make([]mcp.ResourceContents, 0, len(list))
	for _, memo := range list {
		memoJSON, _ := json.MarshalIndent(memo, "", "  ")
		resources = append(resources, mcp.TextResourceContents{
			URI:      memoURIPrefix + memos.NormalizeID(memo.Name),
			MIMEType: "application/json",
			Text:     string(memoJSON),
		})
	}
	return resources
}
