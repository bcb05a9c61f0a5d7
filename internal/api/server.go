// Package api serves the local HTTP surface: analysis, save-snippet, and
// listing endpoints, a WebSocket live-analysis feed, and an optional
// data-directory watcher that reloads the store when notes change.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hurttlocker/ctxd/internal/analyze"
	"github.com/hurttlocker/ctxd/internal/ingest"
	"github.com/hurttlocker/ctxd/internal/store"
)

// ServerConfig holds settings for the API server.
type ServerConfig struct {
	Store    store.Store
	Analyzer *analyze.Analyzer
	Port     int
	DataDir  string // data directory for reloads; empty disables /api/reload and watching
	Watch    bool   // watch DataDir and reload on changes
	Indexer  Indexer
}

// Indexer re-embeds the store after a reload. Satisfied by the semantic
// searcher; nil when semantic search is not configured.
type Indexer interface {
	IndexAll(ctx context.Context) (int, error)
}

// Server is the HTTP API for one analyzer + store pair. Reloads write to the
// store, so all handler store access is serialized through dbMu.
type Server struct {
	cfg ServerConfig
	hub *hub

	dbMu sync.Mutex
}

// NewServer creates an API server.
func NewServer(cfg ServerConfig) *Server {
	return &Server{cfg: cfg, hub: newHub()}
}

// Handler returns the route table. Split from Serve so tests can mount it on
// httptest.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/save-snippet", s.handleSaveSnippet)
	mux.HandleFunc("/api/contacts", s.handleContacts)
	mux.HandleFunc("/api/snippets", s.handleSnippets)
	mux.HandleFunc("/api/projects", s.handleProjects)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/reload", s.handleReload)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Serve starts the server, optionally with the data-directory watcher.
// Blocks until the listener fails.
func (s *Server) Serve() error {
	if s.cfg.Watch && s.cfg.DataDir != "" {
		stop, err := s.watchDataDir()
		if err != nil {
			return fmt.Errorf("starting data watcher: %w", err)
		}
		defer stop()
	}

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	fmt.Printf("ctxd API: http://localhost%s\n", addr)
	if s.cfg.Watch && s.cfg.DataDir != "" {
		fmt.Printf("  watching %s for changes\n", s.cfg.DataDir)
	}
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, 405, map[string]string{"error": "POST required"})
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, 400, map[string]string{"error": "text is required"})
		return
	}

	s.dbMu.Lock()
	result, err := s.cfg.Analyzer.Analyze(r.Context(), req.Text)
	s.dbMu.Unlock()
	if err != nil {
		writeJSON(w, 500, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, 200, result)
}

func (s *Server) handleSaveSnippet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, 405, map[string]string{"error": "POST required"})
		return
	}

	var req struct {
		Text   string   `json:"text"`
		Tags   []string `json:"tags"`
		Source string   `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, 400, map[string]string{"error": "text is required"})
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	snippet := &store.Snippet{
		Text:      req.Text,
		SavedDate: time.Now().UTC().Format("2006-01-02"),
		Tags:      req.Tags,
		Source:    req.Source,
	}

	s.dbMu.Lock()
	id, err := s.cfg.Store.AddSnippet(r.Context(), snippet)
	s.dbMu.Unlock()
	if err != nil {
		writeJSON(w, 500, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, 200, map[string]any{"status": "saved", "id": id})
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	s.dbMu.Lock()
	contacts, err := s.cfg.Store.ListContacts(r.Context())
	s.dbMu.Unlock()
	if err != nil {
		writeJSON(w, 500, map[string]string{"error": err.Error()})
		return
	}
	if contacts == nil {
		contacts = []*store.Contact{}
	}
	writeJSON(w, 200, map[string]any{"contacts": contacts, "count": len(contacts)})
}

func (s *Server) handleSnippets(w http.ResponseWriter, r *http.Request) {
	s.dbMu.Lock()
	snippets, err := s.cfg.Store.ListSnippets(r.Context())
	s.dbMu.Unlock()
	if err != nil {
		writeJSON(w, 500, map[string]string{"error": err.Error()})
		return
	}
	if snippets == nil {
		snippets = []*store.Snippet{}
	}
	writeJSON(w, 200, map[string]any{"snippets": snippets, "count": len(snippets)})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	s.dbMu.Lock()
	projects, err := s.cfg.Store.ListProjects(r.Context())
	s.dbMu.Unlock()
	if err != nil {
		writeJSON(w, 500, map[string]string{"error": err.Error()})
		return
	}
	if projects == nil {
		projects = []*store.Project{}
	}
	writeJSON(w, 200, map[string]any{"projects": projects, "count": len(projects)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.dbMu.Lock()
	stats, err := s.cfg.Store.Stats(r.Context())
	s.dbMu.Unlock()
	if err != nil {
		writeJSON(w, 500, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, 200, stats)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, 405, map[string]string{"error": "POST required"})
		return
	}
	if s.cfg.DataDir == "" {
		writeJSON(w, 400, map[string]string{"error": "no data directory configured"})
		return
	}

	counts, err := s.reload(r.Context())
	if err != nil {
		writeJSON(w, 500, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, 200, map[string]any{
		"status":        "reloaded",
		"contacts":      counts.Contacts,
		"snippets":      counts.Snippets,
		"projects":      counts.Projects,
		"abbreviations": counts.Abbreviations,
		"relationships": counts.Relationships,
	})
}

// reload re-ingests the data directory and reindexes embeddings when an
// indexer is configured, then notifies WebSocket clients.
func (s *Server) reload(ctx context.Context) (*ingest.Counts, error) {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	counts, err := ingest.Load(ctx, s.cfg.Store, s.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("reloading data: %w", err)
	}
	if s.cfg.Indexer != nil {
		if _, err := s.cfg.Indexer.IndexAll(ctx); err != nil {
			return nil, fmt.Errorf("reindexing embeddings: %w", err)
		}
	}

	s.hub.broadcast(map[string]any{"event": "reloaded", "contacts": counts.Contacts})
	return counts, nil
}

// writeJSON sends a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
