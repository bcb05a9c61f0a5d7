// Package store provides the SQLite storage layer for ctxd.
//
// All knowledge-base data lives in a single SQLite database file:
// - Four entity tables (contacts, snippets, projects, abbreviations)
// - A relationships table holding the knowledge-graph edges
// - Embedding vectors for optional semantic search
//
// The analyzer is a pure reader of this store; rows are created only by
// ingestion (full reload) or the explicit save-snippet workflow.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.ctxd/ctxd.db"

// EntityType identifies one of the four entity tables. Keys are always formed
// as (EntityType, id) — bare ids collide across types by design.
type EntityType string

const (
	EntityContact      EntityType = "contact"
	EntitySnippet      EntityType = "snippet"
	EntityProject      EntityType = "project"
	EntityAbbreviation EntityType = "abbreviation"
)

// Valid reports whether t names a known entity table.
func (t EntityType) Valid() bool {
	switch t {
	case EntityContact, EntitySnippet, EntityProject, EntityAbbreviation:
		return true
	}
	return false
}

// Entity is implemented by every row type addressable as (type, id).
type Entity interface {
	EntityKind() EntityType
	EntityID() int64
}

// Contact is a person record.
type Contact struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email,omitempty"`
	Role        string         `json:"role,omitempty"`
	Context     string         `json:"context,omitempty"`
	LastContact string         `json:"last_contact,omitempty"`
	NextEvent   string         `json:"next_event,omitempty"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
}

func (c *Contact) EntityKind() EntityType { return EntityContact }
func (c *Contact) EntityID() int64        { return c.ID }

// Snippet is a saved piece of text.
type Snippet struct {
	ID        int64          `json:"id"`
	Text      string         `json:"text"`
	SavedDate string         `json:"saved_date,omitempty"`
	Tags      []string       `json:"tags"`
	Source    string         `json:"source,omitempty"`
	Metadata  map[string]any `json:"metadata"`
}

func (s *Snippet) EntityKind() EntityType { return EntitySnippet }
func (s *Snippet) EntityID() int64        { return s.ID }

// Project is a tracked project.
type Project struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Status      string         `json:"status,omitempty"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
}

func (p *Project) EntityKind() EntityType { return EntityProject }
func (p *Project) EntityID() int64        { return p.ID }

// Abbreviation maps a short form to its expansion.
type Abbreviation struct {
	ID         int64          `json:"id"`
	Abbr       string         `json:"abbr"`
	Full       string         `json:"full"`
	Definition string         `json:"definition,omitempty"`
	Category   string         `json:"category,omitempty"`
	Examples   []string       `json:"examples"`
	Related    []string       `json:"related"`
	Links      []string       `json:"links"`
	Metadata   map[string]any `json:"metadata"`
}

func (a *Abbreviation) EntityKind() EntityType { return EntityAbbreviation }
func (a *Abbreviation) EntityID() int64        { return a.ID }

// Relationship is a directed, typed, weighted edge between two entities.
type Relationship struct {
	ID       int64
	FromType EntityType
	FromID   int64
	ToType   EntityType
	ToID     int64
	Type     string
	Strength float64
}

// Embedding is a stored vector for one entity, owned by the semantic layer.
type Embedding struct {
	EntityType EntityType
	EntityID   int64
	Vector     []float32
	Text       string
}

// Stats holds per-table row counts.
type Stats struct {
	Contacts      int64 `json:"contacts"`
	Snippets      int64 `json:"snippets"`
	Projects      int64 `json:"projects"`
	Abbreviations int64 `json:"abbreviations"`
	Relationships int64 `json:"relationships"`
	Embeddings    int64 `json:"embeddings"`
}

// StoreConfig holds configuration for NewStore.
type StoreConfig struct {
	DBPath string
}

// Store defines the storage interface consumed by the analyzer, ingestion,
// and the presentation layers.
type Store interface {
	// Contacts
	AddContact(ctx context.Context, c *Contact) (int64, error)
	GetContact(ctx context.Context, id int64) (*Contact, error)
	ListContacts(ctx context.Context) ([]*Contact, error)
	SearchContacts(ctx context.Context, text string) ([]*Contact, error)

	// Snippets
	AddSnippet(ctx context.Context, s *Snippet) (int64, error)
	GetSnippet(ctx context.Context, id int64) (*Snippet, error)
	ListSnippets(ctx context.Context) ([]*Snippet, error)
	SearchSnippets(ctx context.Context, text string) ([]*Snippet, error)

	// Projects
	AddProject(ctx context.Context, p *Project) (int64, error)
	GetProject(ctx context.Context, id int64) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	SearchProjects(ctx context.Context, text string) ([]*Project, error)

	// Abbreviations
	AddAbbreviation(ctx context.Context, a *Abbreviation) (int64, error)
	FindAbbreviation(ctx context.Context, text string) (*Abbreviation, error)
	ListAbbreviations(ctx context.Context) ([]*Abbreviation, error)

	// Generic (type, id) resolution for graph traversal.
	GetEntity(ctx context.Context, t EntityType, id int64) (Entity, error)

	// Relationships
	AddRelationship(ctx context.Context, r *Relationship) (int64, error)
	RelationshipsFrom(ctx context.Context, t EntityType, id int64) ([]*Relationship, error)
	RelationshipsTo(ctx context.Context, t EntityType, id int64) ([]*Relationship, error)

	// Embeddings
	PutEmbedding(ctx context.Context, e *Embedding) error
	ListEmbeddings(ctx context.Context) ([]*Embedding, error)
	ClearEmbeddings(ctx context.Context) error

	// Reset empties the entity and relationship tables before a full reload.
	Reset(ctx context.Context) error

	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg StoreConfig) (Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Reset empties all entity, relationship, and embedding tables. Used by
// ingestion before a full reload; sqlite_sequence is cleared so ids restart.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	tables := []string{"contacts", "snippets", "projects", "abbreviations", "relationships", "embeddings"}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reset: %w", err)
	}
	defer tx.Rollback()

	for _, table := range tables {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	// sqlite_sequence only exists once an AUTOINCREMENT insert has happened.
	var seq int
	if err := tx.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'",
	).Scan(&seq); err != nil {
		return fmt.Errorf("checking sequence table: %w", err)
	}
	if seq > 0 {
		if _, err := tx.Exec("DELETE FROM sqlite_sequence"); err != nil {
			return fmt.Errorf("resetting sequences: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset: %w", err)
	}
	return nil
}

// Stats returns per-table row counts.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	counts := []struct {
		table string
		dst   *int64
	}{
		{"contacts", &st.Contacts},
		{"snippets", &st.Snippets},
		{"projects", &st.Projects},
		{"abbreviations", &st.Abbreviations},
		{"relationships", &st.Relationships},
		{"embeddings", &st.Embeddings},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}
	return st, nil
}

// GetEntity resolves a (type, id) pair to its full row. Returns (nil, nil)
// when the row does not exist or the type is unknown, so graph traversal can
// skip dangling edges without failing the whole query.
func (s *SQLiteStore) GetEntity(ctx context.Context, t EntityType, id int64) (Entity, error) {
	switch t {
	case EntityContact:
		return entityOrNil(s.GetContact(ctx, id))
	case EntitySnippet:
		return entityOrNil(s.GetSnippet(ctx, id))
	case EntityProject:
		return entityOrNil(s.GetProject(ctx, id))
	case EntityAbbreviation:
		return entityOrNil(s.getAbbreviation(ctx, id))
	default:
		return nil, nil
	}
}

// entityOrNil collapses sql.ErrNoRows into (nil, nil) and avoids returning a
// typed nil pointer inside a non-nil interface.
func entityOrNil[T Entity](e T, err error) (Entity, error) {
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
