package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/yuzhi-jiang/memos-mcp/pkg/memos"
	memosmcp "github.com/yuzhi-jiang/memos-mcp/pkg/memos-mcp"
)

var (
	memosURL          string
	apiKey            string
	defaultTag        string
	defaultVisibility string
	logLevel          string
	logFile           string
	envFile           string
)

var rootCmd = &cobra.Command{
	Use:   "memos-mcp",
	Short: "MCP server that bridges AI assistants to a Memos instance",
	Long: `memos-mcp speaks the Model Context Protocol over stdio and exposes a Memos
note service as tools, resources, and prompts. Point it at your instance with
--memos-url and --api-key (or MEMOS_URL and MEMOS_API_KEY) and register the
binary with your MCP client.`,
	Run: runServer,
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&memosURL, "memos-url", "", "Base URL of the Memos instance")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "Memos API access token")
	rootCmd.Flags().StringVar(&defaultTag, "default-tag", "", "Tag added to every memo created through this server (empty disables it)")
	rootCmd.Flags().StringVar(&defaultVisibility, "default-visibility", "", "Visibility for new memos (PUBLIC, PROTECTED, PRIVATE)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (optional, logs to stderr if not specified)")
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "Path to a .env file (defaults to ./.env)")
}

func runServer(cmd *cobra.Command, args []string) {
	// Load environment variables if available
	var err error
	if envFile != "" {
		err = godotenv.Load(envFile)
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		slog.Debug("No .env file found, using environment variables and command line args")
	}

	// Get values from environment if not provided via flags
	if memosURL == "" {
		memosURL = os.Getenv("MEMOS_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("MEMOS_API_KEY")
	}
	defaultTag = resolveDefaultTag(cmd.Flags().Changed("default-tag"), defaultTag)
	if defaultVisibility == "" {
		defaultVisibility = getEnv("DEFAULT_VISIBILITY", "PRIVATE")
	}

	// Validate required parameters
	if memosURL == "" {
		fmt.Fprintf(os.Stderr, "Error: Memos URL is required\n")
		fmt.Fprintf(os.Stderr, "Use --memos-url flag or set MEMOS_URL environment variable\n")
		os.Exit(1)
	}

	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "Error: Memos API key is required\n")
		fmt.Fprintf(os.Stderr, "Use --api-key flag or set MEMOS_API_KEY environment variable\n")
		os.Exit(1)
	}

	// Configure logging
	var logHandler slog.Handler
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer file.Close()
		logHandler = slog.NewJSONHandler(file, &slog.HandlerOptions{
			Level: parseLogLevel(logLevel),
		})
	} else {
		logHandler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: parseLogLevel(logLevel),
		})
	}

	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	ms, err := memosmcp.NewMemosServer(memosmcp.Config{
		BaseURL:           memosURL,
		APIKey:            apiKey,
		DefaultTag:        defaultTag,
		DefaultVisibility: memos.Visibility(defaultVisibility),
	})
	if err != nil {
		slog.Error("Failed to create memos server", "error", err)
		os.Exit(1)
	}

	probeAuth(ms)

	slog.Info("Starting Memos MCP server",
		"memos_url", memosURL,
		"default_tag", defaultTag,
		"default_visibility", defaultVisibility,
		"log_level", logLevel,
		"session_id", ms.SessionID())

	// Run the MCP server
	if err := server.ServeStdio(ms.McpServer); err != nil {
		slog.Error("Memos MCP server failed", "error", err)
		os.Exit(1)
	}
}

// probeAuth checks the configured credentials with one round trip. Startup
// continues on failure so a briefly unreachable instance does not kill the
// session.
func probeAuth(ms *memosmcp.MemosServer) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := ms.Client().AuthStatus(ctx)
	if err != nil {
		slog.Warn("Could not verify memos credentials", "error", err)
		return
	}

	slog.Info("Authenticated against memos", "user", user.Name, "nickname", user.Nickname)
}

// resolveDefaultTag resolves the default tag as flag, then environment, then
// the "mcp" fallback. A set-but-empty value from either source is kept: it
// disables the tag union rather than falling through to the fallback.
func resolveDefaultTag(flagSet bool, flagValue string) string {
	if flagSet {
		return flagValue
	}
	if value, ok := os.LookupEnv("DEFAULT_TAG"); ok {
		return value
	}
	return "mcp"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
