package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hurttlocker/ctxd/internal/analyze"
	"github.com/hurttlocker/ctxd/internal/api"
	"github.com/hurttlocker/ctxd/internal/ingest"
	"github.com/hurttlocker/ctxd/internal/mcp"
	"github.com/hurttlocker/ctxd/internal/semantic"
	"github.com/hurttlocker/ctxd/internal/store"
	"github.com/hurttlocker/ctxd/internal/suggest"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "load":
		if err := runLoad(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "analyze":
		if err := runAnalyze(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "mcp":
		if err := runMCP(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "stats":
		if err := runStats(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("ctxd %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// commonFlags holds the flags shared by every subcommand.
type commonFlags struct {
	dbPath string
	rest   []string
}

// parseCommon pulls --db out of args and returns the remainder.
func parseCommon(args []string) (commonFlags, error) {
	var cf commonFlags
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--db":
			if i+1 >= len(args) {
				return cf, fmt.Errorf("--db requires a path")
			}
			i++
			cf.dbPath = args[i]
		default:
			cf.rest = append(cf.rest, args[i])
		}
	}
	return cf, nil
}

func openStore(dbPath string) (store.Store, error) {
	return store.NewStore(store.StoreConfig{DBPath: dbPath})
}

func runLoad(args []string) error {
	cf, err := parseCommon(args)
	if err != nil {
		return err
	}

	var dir string
	markdown := false
	for _, arg := range cf.rest {
		switch {
		case arg == "--markdown":
			markdown = true
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			dir = arg
		}
	}
	if dir == "" {
		return fmt.Errorf("usage: ctxd load <data-dir> [--markdown] [--db <path>]")
	}

	st, err := openStore(cf.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	var counts *ingest.Counts
	if markdown {
		counts, err = ingest.LoadMarkdown(ctx, st, dir)
	} else {
		counts, err = ingest.Load(ctx, st, dir)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d contacts, %d snippets, %d projects, %d abbreviations, %d relationships\n",
		counts.Contacts, counts.Snippets, counts.Projects, counts.Abbreviations, counts.Relationships)
	return nil
}

func runAnalyze(args []string) error {
	cf, err := parseCommon(args)
	if err != nil {
		return err
	}

	var embedFlag string
	var words []string
	for i := 0; i < len(cf.rest); i++ {
		switch {
		case cf.rest[i] == "--embed":
			if i+1 >= len(cf.rest) {
				return fmt.Errorf("--embed requires provider/model")
			}
			i++
			embedFlag = cf.rest[i]
		case strings.HasPrefix(cf.rest[i], "-"):
			return fmt.Errorf("unknown flag: %s", cf.rest[i])
		default:
			words = append(words, cf.rest[i])
		}
	}
	text := strings.Join(words, " ")
	if text == "" {
		return fmt.Errorf("usage: ctxd analyze <text> [--db <path>] [--embed provider/model]")
	}

	st, err := openStore(cf.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	searcher, err := buildSearcher(st, embedFlag)
	if err != nil {
		return err
	}

	analyzer := newAnalyzer(st, searcher)

	result, err := analyzer.Analyze(context.Background(), text)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runServe(args []string) error {
	cf, err := parseCommon(args)
	if err != nil {
		return err
	}

	port := 8742
	dataDir := ""
	watch := false
	embedFlag := ""
	for i := 0; i < len(cf.rest); i++ {
		switch cf.rest[i] {
		case "--port":
			if i+1 >= len(cf.rest) {
				return fmt.Errorf("--port requires a number")
			}
			i++
			p, err := strconv.Atoi(cf.rest[i])
			if err != nil {
				return fmt.Errorf("invalid port %q", cf.rest[i])
			}
			port = p
		case "--data":
			if i+1 >= len(cf.rest) {
				return fmt.Errorf("--data requires a directory")
			}
			i++
			dataDir = cf.rest[i]
		case "--watch":
			watch = true
		case "--embed":
			if i+1 >= len(cf.rest) {
				return fmt.Errorf("--embed requires provider/model")
			}
			i++
			embedFlag = cf.rest[i]
		default:
			return fmt.Errorf("unknown flag: %s", cf.rest[i])
		}
	}
	if watch && dataDir == "" {
		return fmt.Errorf("--watch requires --data")
	}

	st, err := openStore(cf.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	searcher, err := buildSearcher(st, embedFlag)
	if err != nil {
		return err
	}

	analyzer := newAnalyzer(st, searcher)

	cfg := api.ServerConfig{
		Store:    st,
		Analyzer: analyzer,
		Port:     port,
		DataDir:  dataDir,
		Watch:    watch,
	}
	if searcher != nil {
		cfg.Indexer = searcher
	}
	return api.NewServer(cfg).Serve()
}

func runMCP(args []string) error {
	cf, err := parseCommon(args)
	if err != nil {
		return err
	}

	dataDir := ""
	embedFlag := ""
	for i := 0; i < len(cf.rest); i++ {
		switch cf.rest[i] {
		case "--data":
			if i+1 >= len(cf.rest) {
				return fmt.Errorf("--data requires a directory")
			}
			i++
			dataDir = cf.rest[i]
		case "--embed":
			if i+1 >= len(cf.rest) {
				return fmt.Errorf("--embed requires provider/model")
			}
			i++
			embedFlag = cf.rest[i]
		default:
			return fmt.Errorf("unknown flag: %s", cf.rest[i])
		}
	}

	st, err := openStore(cf.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	searcher, err := buildSearcher(st, embedFlag)
	if err != nil {
		return err
	}

	analyzer := newAnalyzer(st, searcher)

	srv := mcp.NewServer(mcp.ServerConfig{
		Store:    st,
		Analyzer: analyzer,
		DataDir:  dataDir,
		Version:  version,
	})
	return mcp.ServeStdio(srv)
}

func runStats(args []string) error {
	cf, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(cf.rest) > 0 {
		return fmt.Errorf("usage: ctxd stats [--db <path>]")
	}

	st, err := openStore(cf.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Contacts:      %d\n", stats.Contacts)
	fmt.Printf("Snippets:      %d\n", stats.Snippets)
	fmt.Printf("Projects:      %d\n", stats.Projects)
	fmt.Printf("Abbreviations: %d\n", stats.Abbreviations)
	fmt.Printf("Relationships: %d\n", stats.Relationships)
	fmt.Printf("Embeddings:    %d\n", stats.Embeddings)
	return nil
}

// newAnalyzer wires the analyzer, leaving the semantic field a true nil
// interface when no searcher is configured.
func newAnalyzer(st store.Store, searcher *semantic.Searcher) *analyze.Analyzer {
	cfg := analyze.Config{
		Store:     st,
		Suggester: suggest.NewSuggester(),
	}
	if searcher != nil {
		cfg.Semantic = searcher
	}
	return analyze.New(cfg)
}

// buildSearcher constructs the optional semantic searcher from the --embed
// flag or the CTXD_EMBED env var. Returns nil when nothing is configured.
func buildSearcher(st store.Store, embedFlag string) (*semantic.Searcher, error) {
	cfg, err := semantic.ResolveEmbedConfig(embedFlag)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, nil
	}
	client, err := semantic.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return semantic.NewSearcher(st, client, 0), nil
}

func printUsage() {
	fmt.Printf(`ctxd %s — selection context engine

Usage:
  ctxd load <data-dir> [--markdown]      Reload the knowledge base from YAML or Markdown notes
  ctxd analyze <text>                    Analyze text and print the JSON result
  ctxd serve [--port N] [--data <dir>] [--watch]
                                         Start the local HTTP API (+ WebSocket feed)
  ctxd mcp [--data <dir>]                Start the MCP server on stdio
  ctxd stats                             Show row counts per table
  ctxd version                           Show version

Common flags:
  --db <path>        Database path (default: %s)
  --embed <p/model>  Enable semantic search via an embeddings provider
                     (ollama/..., openai/..., custom/...; or set CTXD_EMBED)

Examples:
  ctxd load ./data
  ctxd load ./notes --markdown
  ctxd analyze "Met Sarah Mitchell about JT-123"
  ctxd serve --port 8742 --data ./notes --watch
`, version, store.DefaultDBPath)
}
