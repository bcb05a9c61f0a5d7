package store

import (
	"context"
	"database/sql"
	"fmt"
)

const snippetColumns = "id, text, saved_date, tags, source, metadata"

// AddSnippet inserts a snippet and returns its id.
func (s *SQLiteStore) AddSnippet(ctx context.Context, sn *Snippet) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO snippets (text, saved_date, tags, source, metadata)
		VALUES (?, ?, ?, ?, ?)`,
		sn.Text, sn.SavedDate, marshalList(sn.Tags), sn.Source, marshalMap(sn.Metadata),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting snippet: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading snippet id: %w", err)
	}
	sn.ID = id
	return id, nil
}

// GetSnippet fetches a snippet by id. Returns sql.ErrNoRows when missing.
func (s *SQLiteStore) GetSnippet(ctx context.Context, id int64) (*Snippet, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+snippetColumns+" FROM snippets WHERE id = ?", id)
	return scanSnippet(row)
}

// ListSnippets returns all snippets ordered by id.
func (s *SQLiteStore) ListSnippets(ctx context.Context) ([]*Snippet, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+snippetColumns+" FROM snippets ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	defer rows.Close()
	return collectSnippets(rows)
}

// SearchSnippets finds snippets whose text or tags contain text. Tags are a
// JSON array column, so the LIKE match runs over the serialized form.
func (s *SQLiteStore) SearchSnippets(ctx context.Context, text string) ([]*Snippet, error) {
	q := "%" + text + "%"
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+snippetColumns+" FROM snippets WHERE text LIKE ? OR tags LIKE ? ORDER BY id",
		q, q)
	if err != nil {
		return nil, fmt.Errorf("searching snippets: %w", err)
	}
	defer rows.Close()
	return collectSnippets(rows)
}

func scanSnippet(row rowScanner) (*Snippet, error) {
	var sn Snippet
	var savedDate, tags, source, metadata sql.NullString
	err := row.Scan(&sn.ID, &sn.Text, &savedDate, &tags, &source, &metadata)
	if err != nil {
		return nil, err
	}
	sn.SavedDate = savedDate.String
	sn.Tags = unmarshalList(tags.String)
	sn.Source = source.String
	sn.Metadata = unmarshalMap(metadata.String)
	return &sn, nil
}

func collectSnippets(rows *sql.Rows) ([]*Snippet, error) {
	var out []*Snippet
	for rows.Next() {
		sn, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snippet: %w", err)
		}
		out = append(out, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snippets: %w", err)
	}
	return out, nil
}
