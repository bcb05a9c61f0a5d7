package store

import (
	"fmt"
	"time"
)

// migrate creates all tables if they don't exist and seeds metadata.
func (s *SQLiteStore) migrate() error {
	statements := []string{
		// People
		`CREATE TABLE IF NOT EXISTS contacts (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			name         TEXT NOT NULL,
			email        TEXT,
			role         TEXT,
			context      TEXT,
			last_contact TEXT,
			next_event   TEXT,
			tags         TEXT,
			metadata     TEXT
		)`,

		// Saved text snippets
		`CREATE TABLE IF NOT EXISTS snippets (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			text       TEXT NOT NULL,
			saved_date TEXT,
			tags       TEXT,
			source     TEXT,
			metadata   TEXT
		)`,

		// Projects
		`CREATE TABLE IF NOT EXISTS projects (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL,
			status      TEXT,
			description TEXT,
			tags        TEXT,
			metadata    TEXT
		)`,

		// Abbreviation glossary
		`CREATE TABLE IF NOT EXISTS abbreviations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			abbr       TEXT NOT NULL,
			full       TEXT NOT NULL,
			definition TEXT,
			category   TEXT,
			examples   TEXT,
			related    TEXT,
			links      TEXT,
			metadata   TEXT
		)`,

		// Knowledge-graph edges
		`CREATE TABLE IF NOT EXISTS relationships (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			from_type         TEXT,
			from_id           INTEGER,
			to_type           TEXT,
			to_id             INTEGER,
			relationship_type TEXT,
			strength          REAL DEFAULT 1.0,
			metadata          TEXT
		)`,

		// Embedding vectors for semantic search
		`CREATE TABLE IF NOT EXISTS embeddings (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_type TEXT,
			entity_id   INTEGER,
			embedding   BLOB,
			text        TEXT
		)`,

		// Metadata table
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_contacts_name ON contacts(name)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email)`,
		`CREATE INDEX IF NOT EXISTS idx_snippets_text ON snippets(text)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships(from_type, from_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships(to_type, to_id)`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_entity ON embeddings(entity_type, entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_abbreviations_abbr ON abbreviations(abbr)`,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration %q: %w", truncate(stmt, 80), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}

	return s.seedMeta()
}

// seedMeta initializes the meta table with defaults if not already set.
func (s *SQLiteStore) seedMeta() error {
	defaults := map[string]string{
		"schema_version": "1",
		"created_at":     time.Now().UTC().Format(time.RFC3339),
	}

	for k, v := range defaults {
		_, err := s.db.Exec(
			"INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)", k, v,
		)
		if err != nil {
			return fmt.Errorf("seeding meta key %q: %w", k, err)
		}
	}
	return nil
}

// truncate shortens a string for error messages.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
