// Package mcp provides a Model Context Protocol server for ctxd.
//
// It exposes the context engine over stdio transport (for Claude Desktop,
// Cursor, and similar clients): analyze selected text, save snippets, read
// store stats, and trigger a data reload.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/ctxd/internal/analyze"
	"github.com/hurttlocker/ctxd/internal/ingest"
	"github.com/hurttlocker/ctxd/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store    store.Store
	Analyzer *analyze.Analyzer
	DataDir  string // data directory for ctxd_reload; empty disables it
	Version  string
}

// dbMu serializes all MCP tool calls that touch the database.
// The mcp-go library dispatches handlers concurrently via goroutines, and
// reload writes while analyze reads; a global mutex keeps their ordering
// sane on a single SQLite handle.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all ctxd tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"ctxd",
		ver,
		server.WithToolCapabilities(false),
	)

	registerAnalyzeTool(s, cfg.Analyzer)
	registerSaveSnippetTool(s, cfg.Store)
	registerStatsTool(s, cfg.Store)
	if cfg.DataDir != "" {
		registerReloadTool(s, cfg.Store, cfg.DataDir)
	}

	return s
}

func registerAnalyzeTool(s *server.MCPServer, analyzer *analyze.Analyzer) {
	tool := mcp.NewTool("ctxd_analyze",
		mcp.WithDescription("Analyze a piece of text against the personal knowledge base: pattern detection, contact/snippet/project matches, graph neighbors, and suggested actions."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The selected text to analyze"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		result, err := analyzer.Analyze(ctx, text)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	})
}

func registerSaveSnippetTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("ctxd_save_snippet",
		mcp.WithDescription("Save a piece of text as a snippet in the knowledge base."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Snippet text to save"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags"),
		),
		mcp.WithString("source",
			mcp.Description("Where the text came from (default: mcp)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		var tags []string
		if tagStr, err := req.RequireString("tags"); err == nil && tagStr != "" {
			for _, t := range strings.Split(tagStr, ",") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
		}

		source := "mcp"
		if src, err := req.RequireString("source"); err == nil && src != "" {
			source = src
		}

		id, err := st.AddSnippet(ctx, &store.Snippet{
			Text:      text,
			SavedDate: time.Now().UTC().Format("2006-01-02"),
			Tags:      tags,
			Source:    source,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("saving snippet: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Saved snippet %d", id)), nil
	})
}

func registerStatsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("ctxd_stats",
		mcp.WithDescription("Row counts for every table in the knowledge base."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reading stats: %v", err)), nil
		}
		payload, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encoding stats: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	})
}

func registerReloadTool(s *server.MCPServer, st store.Store, dataDir string) {
	tool := mcp.NewTool("ctxd_reload",
		mcp.WithDescription("Empty the knowledge base and reload it from the configured data directory."),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		counts, err := ingest.Load(ctx, st, dataDir)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reload failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"Reloaded: %d contacts, %d snippets, %d projects, %d abbreviations, %d relationships",
			counts.Contacts, counts.Snippets, counts.Projects, counts.Abbreviations, counts.Relationships,
		)), nil
	})
}

// ServeStdio runs the MCP server on stdin/stdout until the client closes.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
