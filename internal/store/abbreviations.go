package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const abbreviationColumns = "id, abbr, full, definition, category, examples, related, links, metadata"

// AddAbbreviation inserts an abbreviation and returns its id.
func (s *SQLiteStore) AddAbbreviation(ctx context.Context, a *Abbreviation) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO abbreviations (abbr, full, definition, category, examples, related, links, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Abbr, a.Full, a.Definition, a.Category,
		marshalList(a.Examples), marshalList(a.Related), marshalList(a.Links),
		marshalMap(a.Metadata),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting abbreviation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading abbreviation id: %w", err)
	}
	a.ID = id
	return id, nil
}

// FindAbbreviation looks up an abbreviation whose short form equals the
// trimmed input, case-insensitively. Returns (nil, nil) when there is no
// match — "no abbreviation" is a normal analysis outcome, not an error.
func (s *SQLiteStore) FindAbbreviation(ctx context.Context, text string) (*Abbreviation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+abbreviationColumns+" FROM abbreviations WHERE UPPER(abbr) = UPPER(?) LIMIT 1",
		text)
	a, err := scanAbbreviation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("finding abbreviation: %w", err)
	}
	return a, nil
}

// ListAbbreviations returns all abbreviations ordered by id.
func (s *SQLiteStore) ListAbbreviations(ctx context.Context) ([]*Abbreviation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+abbreviationColumns+" FROM abbreviations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing abbreviations: %w", err)
	}
	defer rows.Close()

	var out []*Abbreviation
	for rows.Next() {
		a, err := scanAbbreviation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning abbreviation: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating abbreviations: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) getAbbreviation(ctx context.Context, id int64) (*Abbreviation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+abbreviationColumns+" FROM abbreviations WHERE id = ?", id)
	return scanAbbreviation(row)
}

func scanAbbreviation(row rowScanner) (*Abbreviation, error) {
	var a Abbreviation
	var definition, category, examples, related, links, metadata sql.NullString
	err := row.Scan(&a.ID, &a.Abbr, &a.Full, &definition, &category, &examples, &related, &links, &metadata)
	if err != nil {
		return nil, err
	}
	a.Definition = definition.String
	a.Category = category.String
	a.Examples = unmarshalList(examples.String)
	a.Related = unmarshalList(related.String)
	a.Links = unmarshalList(links.String)
	a.Metadata = unmarshalMap(metadata.String)
	return &a, nil
}
