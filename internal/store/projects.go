package store

import (
	"context"
	"database/sql"
	"fmt"
)

const projectColumns = "id, name, status, description, tags, metadata"

// AddProject inserts a project and returns its id.
func (s *SQLiteStore) AddProject(ctx context.Context, p *Project) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (name, status, description, tags, metadata)
		VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Status, p.Description, marshalList(p.Tags), marshalMap(p.Metadata),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading project id: %w", err)
	}
	p.ID = id
	return id, nil
}

// GetProject fetches a project by id. Returns sql.ErrNoRows when missing.
func (s *SQLiteStore) GetProject(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	return scanProject(row)
}

// ListProjects returns all projects ordered by id.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()
	return collectProjects(rows)
}

// SearchProjects finds projects whose name or tags contain text.
func (s *SQLiteStore) SearchProjects(ctx context.Context, text string) ([]*Project, error) {
	q := "%" + text + "%"
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE name LIKE ? OR tags LIKE ? ORDER BY id",
		q, q)
	if err != nil {
		return nil, fmt.Errorf("searching projects: %w", err)
	}
	defer rows.Close()
	return collectProjects(rows)
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	var status, description, tags, metadata sql.NullString
	err := row.Scan(&p.ID, &p.Name, &status, &description, &tags, &metadata)
	if err != nil {
		return nil, err
	}
	p.Status = status.String
	p.Description = description.String
	p.Tags = unmarshalList(tags.String)
	p.Metadata = unmarshalMap(metadata.String)
	return &p, nil
}

func collectProjects(rows *sql.Rows) ([]*Project, error) {
	var out []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return out, nil
}
