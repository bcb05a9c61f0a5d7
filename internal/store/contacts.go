package store

import (
	"context"
	"database/sql"
	"fmt"
)

const contactColumns = "id, name, email, role, context, last_contact, next_event, tags, metadata"

// AddContact inserts a contact and returns its id.
func (s *SQLiteStore) AddContact(ctx context.Context, c *Contact) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (name, email, role, context, last_contact, next_event, tags, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Email, c.Role, c.Context, c.LastContact, c.NextEvent,
		marshalList(c.Tags), marshalMap(c.Metadata),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting contact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading contact id: %w", err)
	}
	c.ID = id
	return id, nil
}

// GetContact fetches a contact by id. Returns sql.ErrNoRows when missing.
func (s *SQLiteStore) GetContact(ctx context.Context, id int64) (*Contact, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE id = ?", id)
	return scanContact(row)
}

// ListContacts returns all contacts ordered by id.
func (s *SQLiteStore) ListContacts(ctx context.Context) ([]*Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+contactColumns+" FROM contacts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	defer rows.Close()
	return collectContacts(rows)
}

// SearchContacts finds contacts whose name or email contains text
// (case-insensitive, LIKE semantics).
func (s *SQLiteStore) SearchContacts(ctx context.Context, text string) ([]*Contact, error) {
	q := "%" + text + "%"
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE name LIKE ? OR email LIKE ? ORDER BY id",
		q, q)
	if err != nil {
		return nil, fmt.Errorf("searching contacts: %w", err)
	}
	defer rows.Close()
	return collectContacts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*Contact, error) {
	var c Contact
	var email, role, context, lastContact, nextEvent, tags, metadata sql.NullString
	err := row.Scan(&c.ID, &c.Name, &email, &role, &context, &lastContact, &nextEvent, &tags, &metadata)
	if err != nil {
		return nil, err
	}
	c.Email = email.String
	c.Role = role.String
	c.Context = context.String
	c.LastContact = lastContact.String
	c.NextEvent = nextEvent.String
	c.Tags = unmarshalList(tags.String)
	c.Metadata = unmarshalMap(metadata.String)
	return &c, nil
}

func collectContacts(rows *sql.Rows) ([]*Contact, error) {
	var out []*Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning contact: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contacts: %w", err)
	}
	return out, nil
}
