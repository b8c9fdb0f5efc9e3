package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yuzhi-jiang/memos-mcp/pkg/memos"
)

// Manual smoke-test client. It spawns a memos-mcp binary over stdio and
// walks the tool, resource, and prompt surfaces. The server reads its
// connection settings from the environment, so export MEMOS_URL and
// MEMOS_API_KEY before running.
func main() {
	// Define command line flags
	server := flag.String("server", "", "Path to the memos-mcp binary to spawn")
	query := flag.String("query", "memo", "Search query to run through search_memos")
	flag.Parse()

	if *server == "" {
		fmt.Println("Error: You must specify --server <path to memos-mcp binary>")
		flag.Usage()
		os.Exit(1)
	}

	// Create a context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Println("Initializing stdio client...")

	c, err := client.NewStdioMCPClient(*server, nil)
	if err != nil {
		slog.Error("Failed to create new client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "memos-mcp-client",
		Version: "1.0.0",
	}

	initResult, err := c.Initialize(ctx, initRequest)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	fmt.Printf(
		"Initialized with server: %s %s\n\n",
		initResult.ServerInfo.Name,
		initResult.ServerInfo.Version,
	)

	// List Tools
	fmt.Println("Listing available tools...")
	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		log.Fatalf("Failed to list tools: %v", err)
	}
	for _, tool := range tools.Tools {
		fmt.Printf("- %s: %s\n", tool.Name, tool.Description)
	}
	fmt.Println()

	// Search for memos
	fmt.Printf("Searching memos for %q...\n", *query)
	req := mcp.CallToolRequest{}
	req.Params.Name = "search_memos"
	req.Params.Arguments = map[string]any{"query": *query}

	result, err := c.CallTool(ctx, req)
	if err != nil {
		slog.Error("Failed to search memos", "error", err)
		os.Exit(1)
	}
	printToolResult(result)

	textContent, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		slog.Error("Invalid content returned from search_memos")
		os.Exit(1)
	}

	var found []memos.Memo
	if err := json.Unmarshal([]byte(textContent.Text), &found); err != nil {
		slog.Error("Failed to unmarshal the memos", "content", textContent, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Found %d memos\n\n", len(found))

	// List the tag catalog
	fmt.Println("Listing memo tags...")
	req = mcp.CallToolRequest{}
	req.Params.Name = "list_memo_tags"

	result, err = c.CallTool(ctx, req)
	if err != nil {
		slog.Error("Failed to list memo tags", "error", err)
		os.Exit(1)
	}
	printToolResult(result)

	// Read the recent memos resource
	fmt.Println("Reading memos://recent...")
	resourceReq := mcp.ReadResourceRequest{}
	resourceReq.Params.URI = "memos://recent"

	resource, err := c.ReadResource(ctx, resourceReq)
	if err != nil {
		slog.Error("Failed to read the recent memos resource", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Recent view holds %d memos\n\n", len(resource.Contents))

	// Fetch a workflow prompt
	fmt.Println("Fetching the weekly-summary prompt...")
	promptReq := mcp.GetPromptRequest{}
	promptReq.Params.Name = "weekly-summary"

	prompt, err := c.GetPrompt(ctx, promptReq)
	if err != nil {
		slog.Error("Failed to fetch the prompt", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Prompt: %s (%d messages)\n", prompt.Description, len(prompt.Messages))
}

// Helper function to print tool results
func printToolResult(result *mcp.CallToolResult) {
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			fmt.Println(textContent.Text)
		} else {
			jsonBytes, _ := json.MarshalIndent(content, "", "  ")
			fmt.Println(string(jsonBytes))
		}
	}
}
