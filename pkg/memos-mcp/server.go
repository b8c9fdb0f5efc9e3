// Package memos_mcp provides the MCP server that bridges assistant tool
// calls, resources, and prompts to a Memos note service.
package memos_mcp

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yuzhi-jiang/memos-mcp/pkg/memos"
)

const serverInstructions = `This server bridges to a Memos note service. ` +
	`Use search_memos or filter_memos to find memos, create_memo, update_memo ` +
	`and delete_memo to manage them, and delete_memo_tag to remove a hashtag ` +
	`from one memo. Memo ids may be given as either "42" or "memos/42". Tags ` +
	`are hashtag tokens inside memo content, written without the leading "#" ` +
	`in tool parameters.`

// Config is the immutable server configuration, established once at startup
// and never mutated afterwards.
type Config struct {
	// BaseURL is the address of the Memos instance.
	BaseURL string
	// APIKey is the bearer credential every request carries.
	APIKey string
	// DefaultTag, when set, is unioned into the tag set of every created
	// memo.
	DefaultTag string
	// DefaultVisibility applies to created memos that do not name one.
	// Empty means PRIVATE.
	DefaultVisibility memos.Visibility
}

type MemosServer struct {
	McpServer *server.MCPServer
	client    *memos.Client
	config    Config
	prompts   *PromptRegistry
	sessionID string
}

func NewMemosServer(cfg Config) (*MemosServer, error) {
	client, err := memos.NewClient(cfg.BaseURL, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create memos client: %w", err)
	}

	if cfg.DefaultVisibility == "" {
		cfg.DefaultVisibility = memos.VisibilityPrivate
	} else {
		vis, err := memos.ParseVisibility(string(cfg.DefaultVisibility))
		if err != nil {
			return nil, fmt.Errorf("invalid default visibility: %w", err)
		}
		cfg.DefaultVisibility = vis
	}

	ms := &MemosServer{}

	ms.client = client
	ms.config = cfg
	ms.prompts = NewPromptRegistry()
	ms.sessionID = uuid.New().String()
	ms.McpServer = server.NewMCPServer("memos-mcp", "v1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions))
	ms.addTools()
	ms.addResources()
	ms.addPrompts()

	return ms, nil
}

// Client returns the API client, for callers that want to probe the
// configured credential before serving.
func (ms *MemosServer) Client() *memos.Client {
	return ms.client
}

// SessionID identifies this server process in logs.
func (ms *MemosServer) SessionID() string {
	return ms.sessionID
}

func (ms *MemosServer) addTools() {
	// Tool 1: Search memos by keyword
	searchTool := mcp.NewTool(
		"search_memos",
		mcp.WithDescription("Search memos whose content contains a keyword, optionally narrowed by a filter expression"),
		mcp.WithString("query", mcp.Description("Keyword to search memo content for"), mcp.Required()),
		mcp.WithString("filter_expr", mcp.Description("Optional CEL filter expression, e.g. visibility == 'PRIVATE'")),
	)
	ms.McpServer.AddTool(searchTool, mcp.NewTypedToolHandler(ms.SearchMemos))

	// Tool 2: Filter memos with an expression
	filterTool := mcp.NewTool(
		"filter_memos",
		mcp.WithDescription("List memos matching a CEL filter expression"),
		mcp.WithString("filter_expr", mcp.Description("CEL filter expression, e.g. content.contains('meeting') && visibility == 'PRIVATE'"), mcp.Required()),
	)
	ms.McpServer.AddTool(filterTool, mcp.NewTypedToolHandler(ms.FilterMemos))

	// Tool 3: Create a memo
	createTool := mcp.NewTool(
		"create_memo",
		mcp.WithDescription("Create a new memo"),
		mcp.WithString("content", mcp.Description("Memo content in Markdown"), mcp.Required()),
		mcp.WithString("visibility", mcp.Description("Memo visibility (defaults to the configured default)"), mcp.Enum("PUBLIC", "PROTECTED", "PRIVATE")),
		mcp.WithArray("tags", mcp.Description("Tags to attach, without the leading '#'"), mcp.Items(map[string]any{"type": "string"})),
	)
	ms.McpServer.AddTool(createTool, mcp.NewTypedToolHandler(ms.CreateMemo))

	// Tool 4: Update a memo
	updateTool := mcp.NewTool(
		"update_memo",
		mcp.WithDescription("Update a memo's content and/or visibility; at least one must be given"),
		mcp.WithString("memo_id", mcp.Description("Memo id, e.g. G3o72r9oijTWFxy9ueWzW7 or memos/G3o72r9oijTWFxy9ueWzW7"), mcp.Required()),
		mcp.WithString("content", mcp.Description("New memo content in Markdown")),
		mcp.WithString("visibility", mcp.Description("New memo visibility"), mcp.Enum("PUBLIC", "PROTECTED", "PRIVATE")),
	)
	ms.McpServer.AddTool(updateTool, mcp.NewTypedToolHandler(ms.UpdateMemo))

	// Tool 5: Delete a memo
	deleteTool := mcp.NewTool(
		"delete_memo",
		mcp.WithDescription("Delete a memo permanently"),
		mcp.WithString("memo_id", mcp.Description("Memo id of the memo to delete"), mcp.Required()),
	)
	ms.McpServer.AddTool(deleteTool, mcp.NewTypedToolHandler(ms.DeleteMemo))

	// Tool 6: Remove a tag from a memo
	deleteTagTool := mcp.NewTool(
		"delete_memo_tag",
		mcp.WithDescription("Remove a hashtag from a memo's content"),
		mcp.WithString("memo_id", mcp.Description("Memo id of the memo to edit"), mcp.Required()),
		mcp.WithString("tag", mcp.Description("Tag name to remove, without the leading '#'"), mcp.Required()),
	)
	ms.McpServer.AddTool(deleteTagTool, mcp.NewTypedToolHandler(ms.DeleteMemoTag))

	// Tool 7: List the tag catalog
	listTagsTool := mcp.NewTool(
		"list_memo_tags",
		mcp.WithDescription("List all tags known to the Memos instance"),
	)
	ms.McpServer.AddTool(listTagsTool, mcp.NewTypedToolHandler(ms.ListMemoTags))
}

func (ms *MemosServer) addResources() {
	// Resource 1: Recent memos
	recentResource := mcp.NewResource(
		recentMemosURI,
		"Recent Memos",
		mcp.WithResourceDescription("The most recently created memos"),
		mcp.WithMIMEType("application/json"),
	)
	ms.McpServer.AddResource(recentResource, ms.ReadRecentMemos)

	// Resource 2: All memos
	allResource := mcp.NewResource(
		allMemosURI,
		"All Memos",
		mcp.WithResourceDescription("Every memo visible to the configured credential"),
		mcp.WithMIMEType("application/json"),
	)
	ms.McpServer.AddResource(allResource, ms.ReadAllMemos)

	// Resource 3: Tag catalog
	tagsResource := mcp.NewResource(
		memoTagsURI,
		"Memo Tags",
		mcp.WithResourceDescription("All tags known to the Memos instance"),
		mcp.WithMIMEType("application/json"),
	)
	ms.McpServer.AddResource(tagsResource, ms.ReadMemoTags)

	// Resource 4: A single memo by id
	memoTemplate := mcp.NewResourceTemplate(
		memoURIPrefix+"{id}",
		"Memo by ID",
	)
	ms.McpServer.AddResourceTemplate(memoTemplate, ms.ReadMemoByID)
}

func (ms *MemosServer) addPrompts() {
	for _, tmpl := range ms.prompts.Templates() {
		prompt := mcp.NewPrompt(tmpl.Name, mcp.WithPromptDescription(tmpl.Description))
		ms.McpServer.AddPrompt(prompt, ms.GetPrompt)
	}
}

// memoListResult shapes a list of memos as an indented JSON tool result.
func memoListResult(list []memos.Memo) (*mcp.CallToolResult, error) {
	if list == nil {
		list = []memos.Memo{}
	}
	resultJSON, _ := json.MarshalIndent(list, "", "  ")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(resultJSON)),
		},
	}, nil
}

// memoResult shapes a single memo as an indented JSON tool result.
func memoResult(memo *memos.Memo) (*mcp.CallToolResult, error) {
	resultJSON, _ := json.MarshalIndent(memo, "", "  ")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(resultJSON)),
		},
	}, nil
}
